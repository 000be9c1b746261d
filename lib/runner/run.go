// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/coreburn/lib/affinity"
	"github.com/bureau-foundation/coreburn/lib/dcl"
	"github.com/bureau-foundation/coreburn/lib/freqctl"
	"github.com/bureau-foundation/coreburn/lib/telemetrylog"
	"github.com/bureau-foundation/coreburn/lib/watchdog"
	"github.com/bureau-foundation/coreburn/lib/workload"
)

// Result is the outcome of a completed run.
type Result struct {
	Fingerprint string        `json:"fingerprint"`
	Kind        workload.Kind `json:"kind"`
	Threads     int           `json:"threads"`
	Start       time.Time     `json:"start"`
	Requested   time.Duration `json:"requested_ns"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	StopReason  StopReason    `json:"stop_reason"`
	Intervals   int           `json:"intervals"`

	Workers []workload.Total `json:"workers"`

	FinalTemperatureCelsius *float64 `json:"final_temperature_c,omitempty"`

	ThrottleSteps   int    `json:"throttle_steps"`
	TopologyChanges uint64 `json:"topology_changes"`

	Residency  *dcl.Residency `json:"residency,omitempty"`
	Validation *dcl.Record    `json:"validation,omitempty"`

	// LogError is the failure that disabled the telemetry log.
	LogError string `json:"log_error,omitempty"`
}

// Failed reports whether the run produced a FAIL verdict.
func (r *Result) Failed() bool {
	return r.Validation != nil && r.Validation.Verdict == dcl.Fail
}

// header is the first record of a fresh telemetry log.
type header struct {
	Plan  *Plan     `json:"plan"`
	Start time.Time `json:"start"`
}

// run holds the state of one Run call.
type run struct {
	plan     *Plan
	env      Environment
	logger   *slog.Logger
	observer Observer

	control    *workload.Control
	table      *affinity.Table
	engine     *workload.Engine
	monitor    *affinity.Monitor
	controller *freqctl.Controller
	residency  *dcl.Histogram
	tracker    *dcl.Tracker
	collector  *collector
	sink       *telemetrylog.Sink
	logError   string

	stateRecorded bool

	start    time.Time
	previous []uint64
}

// Run executes plan until its duration elapses, the stop temperature
// is reached, or ctx is cancelled. observer may be nil.
func Run(ctx context.Context, plan *Plan, observer Observer) (*Result, error) {
	env := plan.env.withDefaults()
	r := &run{
		plan:     plan,
		env:      env,
		logger:   env.Logger.With("component", "runner"),
		observer: observer,
		control:  workload.NewControl(),
	}

	defer r.closeRegisters()
	if err := r.setup(); err != nil {
		return nil, err
	}
	defer r.closeSink()

	r.start = env.Clock.Now()
	r.openSink()

	if err := r.engine.Start(ctx); err != nil {
		r.restoreFrequency()
		return nil, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		r.monitor.Run(monitorCtx)
	}()

	reason, intervals := r.loop(ctx)

	r.control.Stop()
	waitErr := r.engine.Wait()
	cancelMonitor()
	<-monitorDone
	r.restoreFrequency()

	result := r.result(reason, intervals)
	if r.sink != nil {
		if err := r.sink.WriteResult(env.Clock.Now(), result); err != nil {
			r.dropSink(err)
		}
	}
	result.LogError = r.logError
	if waitErr != nil {
		return result, fmt.Errorf("%w: %w", ErrRunFailed, waitErr)
	}
	r.logger.Info("run finished",
		"stop_reason", string(reason),
		"elapsed", result.Elapsed,
		"intervals", intervals,
	)
	return result, nil
}

// setup builds every component. Nothing has been spawned when it
// returns an error.
func (r *run) setup() error {
	plan, env := r.plan, r.env
	profile := plan.Profile

	table, err := affinity.NewTable(plan.topology, plan.Threads, env.Pinner, env.Logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPreRun, err)
	}
	r.table = table

	r.engine, err = workload.NewEngine(workload.EngineConfig{
		Kind:         profile.Workload,
		Ratio:        plan.Ratio,
		Threads:      plan.Threads,
		Utilization:  profile.Utilization,
		Period:       profile.ControlPeriod.Std(),
		Capabilities: plan.Capabilities,
		Clock:        env.Clock,
		Placement:    table,
		Logger:       env.Logger,
		NewUnit:      env.NewUnit,
	}, r.control)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPreRun, err)
	}

	r.monitor = affinity.NewMonitor(affinity.MonitorConfig{
		Table:    table,
		Source:   env.Topology,
		Clock:    env.Clock,
		Interval: profile.AffinityPoll.Std(),
		Logger:   env.Logger,
	})

	r.collector, err = newCollector(plan, r.logger)
	if err != nil {
		return fmt.Errorf("%w: tick counters unreadable: %w", ErrPreRun, err)
	}

	r.residency = dcl.NewDefaultHistogram()
	if plan.DCL != nil {
		r.tracker = dcl.NewTracker(profile.Workload, *plan.DCL, r.residency)
	}

	if profile.FrequencyState != "" {
		if _, err := RecoverFrequency(profile.FrequencyState, env); err != nil {
			r.logger.Warn("recovering frequency policy failed", "path", profile.FrequencyState, "error", err)
		}
	}

	if plan.needsController() {
		controller, err := plan.newController()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPreRun, err)
		}
		controller.Capture()
		r.controller = controller
		if profile.RestoreFrequencyOnExit && profile.FrequencyState != "" {
			r.recordFrequencyState()
		}
		if profile.Governor != "" {
			if err := controller.SetGovernor(profile.Governor); err != nil {
				r.logger.Warn("setting scaling governor failed", "governor", profile.Governor, "error", err)
			}
		}
		if len(profile.FrequencyLimits) > 0 {
			if err := controller.ApplyLimits(profile.FrequencyLimits); err != nil {
				r.logger.Warn("applying frequency limits failed", "error", err)
			}
		}
	}
	return nil
}

// closeRegisters releases the register device descriptors the
// samplers opened. A DeviceMSR reopens on its next read, so a shared
// Environment stays usable.
func (r *run) closeRegisters() {
	closer, ok := r.env.MSR.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		r.logger.Warn("closing register devices", "error", err)
	}
}

// loop runs the control intervals and returns why it ended.
func (r *run) loop(ctx context.Context) (StopReason, int) {
	profile := r.plan.Profile
	ticker := r.env.Clock.NewTicker(profile.Interval.Std())
	defer ticker.Stop()
	deadline := r.env.Clock.After(profile.Duration.Std())

	r.previous = make([]uint64, r.plan.Threads)
	intervals := 0
	for {
		select {
		case <-ctx.Done():
			return StopSignal, intervals
		case <-r.control.Done():
			if ctx.Err() != nil {
				return StopSignal, intervals
			}
			return StopWorkers, intervals
		case <-deadline:
			return StopDuration, intervals
		case now := <-ticker.C:
			snapshot := r.interval(intervals, now)
			intervals++
			r.emit(snapshot)
			if snapshot.TemperatureCelsius != nil && *snapshot.TemperatureCelsius >= profile.StopTemperatureCelsius {
				r.logger.Warn("temperature reached the stop threshold, stopping",
					"temperature_c", *snapshot.TemperatureCelsius,
					"threshold_c", profile.StopTemperatureCelsius,
				)
				return StopTemperature, intervals
			}
		}
	}
}

// interval builds the snapshot of one tick and runs the controllers.
func (r *run) interval(sequence int, now time.Time) Snapshot {
	topology := r.table.Topology()
	cores, temperature, power := r.collector.sample(topology.CPUs())

	descriptors := r.engine.Descriptors()
	workers := make([]WorkerSample, len(descriptors))
	hosting := make(map[int]bool, len(descriptors))
	for i, descriptor := range descriptors {
		operations := descriptor.Operations()
		cpu := r.table.CPU(descriptor.Index)
		workers[i] = WorkerSample{
			Index:      descriptor.Index,
			CPU:        cpu,
			Operations: descriptor.OperationsSince(r.previous[i]),
		}
		r.previous[i] = operations
		hosting[cpu] = true
	}

	snapshot := Snapshot{
		Sequence:           sequence,
		Time:               now,
		Elapsed:            now.Sub(r.start),
		Cores:              cores,
		TemperatureCelsius: temperature,
		Power:              power,
		Workers:            workers,
		MeasuredKHz:        measuredKHz(cores, hosting),
	}

	if r.controller != nil && r.plan.Profile.Throttle.Enabled && temperature != nil {
		snapshot.Throttle = r.controller.Evaluate(*temperature, true)
	}
	if snapshot.MeasuredKHz > 0 {
		if r.tracker == nil {
			r.residency.AddSample(snapshot.MeasuredKHz)
		} else {
			r.tracker.AddSample(snapshot.MeasuredKHz)
		}
		if r.tracker != nil && r.plan.Profile.DCL.Streaming {
			if record, ok := r.tracker.Record(); ok {
				snapshot.Validation = &record
			}
		}
	}
	return snapshot
}

func (r *run) emit(snapshot Snapshot) {
	if r.observer != nil {
		r.observer.Snapshot(snapshot)
	}
	if r.sink == nil {
		return
	}
	if err := r.sink.WriteSnapshot(snapshot.Time, snapshot); err != nil {
		r.dropSink(err)
		return
	}
	if snapshot.Validation != nil {
		if err := r.sink.WriteValidation(snapshot.Time, snapshot.Validation); err != nil {
			r.dropSink(err)
		}
	}
}

func (r *run) openSink() {
	logConfig := r.plan.Profile.Log
	if logConfig.Path == "" {
		return
	}
	sink, err := telemetrylog.Create(logConfig.Path, telemetrylog.Options{
		Append:      logConfig.Append,
		Compression: logConfig.Compression,
	})
	if err != nil {
		r.logger.Warn("telemetry log disabled", "path", logConfig.Path, "error", err)
		r.logError = err.Error()
		return
	}
	r.sink = sink
	if sink.Compression() != logConfig.Compression {
		r.logger.Warn("appending with the existing log's compression",
			"path", logConfig.Path,
			"requested", logConfig.Compression.String(),
			"existing", sink.Compression().String(),
		)
	}
	if !logConfig.Append {
		if err := sink.WriteHeader(r.start, header{Plan: r.plan, Start: r.start}); err != nil {
			r.dropSink(err)
		}
	}
}

// dropSink disables the telemetry log for the rest of the run.
func (r *run) dropSink(err error) {
	r.logger.Warn("telemetry log write failed, log disabled for the rest of the run",
		"path", r.plan.Profile.Log.Path, "error", err)
	r.logError = err.Error()
	r.closeSink()
}

func (r *run) closeSink() {
	if r.sink == nil {
		return
	}
	if err := r.sink.Close(); err != nil && !errors.Is(err, telemetrylog.ErrClosed) {
		r.logger.Warn("closing telemetry log", "error", err)
	}
	r.sink = nil
}

// restoreFrequency puts back the captured policy when requested. It
// is only called once no worker is running.
func (r *run) restoreFrequency() {
	if r.controller == nil || !r.plan.Profile.RestoreFrequencyOnExit {
		return
	}
	if err := r.controller.Restore(); err != nil {
		r.logger.Warn("restoring frequency policy failed", "error", err)
		return
	}
	if r.stateRecorded {
		if err := watchdog.Clear(r.plan.Profile.FrequencyState); err != nil {
			r.logger.Warn("removing frequency state failed", "error", err)
		}
		r.stateRecorded = false
	}
}

func (r *run) result(reason StopReason, intervals int) *Result {
	result := &Result{
		Fingerprint:             r.plan.Fingerprint,
		Kind:                    r.plan.Profile.Workload,
		Threads:                 r.plan.Threads,
		Start:                   r.start,
		Requested:               r.plan.Profile.Duration.Std(),
		Elapsed:                 r.env.Clock.Now().Sub(r.start),
		StopReason:              reason,
		Intervals:               intervals,
		Workers:                 r.engine.Totals(),
		FinalTemperatureCelsius: r.collector.finalTemperature(),
		TopologyChanges:         r.monitor.Changes(),
	}
	if r.controller != nil {
		result.ThrottleSteps = r.controller.Steps()
	}
	residency := r.residency.Summarize()
	result.Residency = &residency
	if r.tracker != nil {
		if record, ok := r.tracker.Record(); ok {
			result.Validation = &record
		}
	}
	return result
}
