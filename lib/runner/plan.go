// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/coreburn/lib/affinity"
	"github.com/bureau-foundation/coreburn/lib/codec"
	"github.com/bureau-foundation/coreburn/lib/config"
	"github.com/bureau-foundation/coreburn/lib/dcl"
	"github.com/bureau-foundation/coreburn/lib/freqctl"
	"github.com/bureau-foundation/coreburn/lib/hwinfo"
	"github.com/bureau-foundation/coreburn/lib/workload"
)

// Plan is a validated run. It is what a check-only invocation reports.
type Plan struct {
	Profile      config.Profile       `json:"profile"`
	Threads      int                  `json:"threads"`
	AllowedCPUs  []int                `json:"allowed_cpus"`
	WorkerCPUs   []int                `json:"worker_cpus"`
	Capabilities hwinfo.Capabilities  `json:"capabilities"`
	Processor    hwinfo.ProcessorInfo `json:"processor"`
	Ratio        workload.Ratio       `json:"ratio"`

	// TemperatureSensor is empty when no sensor was found, which
	// disables auto-stop and throttling.
	TemperatureSensor  string   `json:"temperature_sensor,omitempty"`
	TemperatureCelsius *float64 `json:"temperature_c,omitempty"`

	// DCL is the table entry the run validates against, nil without a
	// table.
	DCL    *dcl.Entry `json:"dcl,omitempty"`
	DCLSKU string     `json:"dcl_sku,omitempty"`

	// PreciseBaseKHz is the APERF/MPERF scale, 0 when precise
	// frequency is off or no base frequency could be determined.
	PreciseBaseKHz uint64 `json:"precise_base_khz,omitempty"`

	// Warnings lists degraded conditions found during preparation.
	Warnings []string `json:"warnings,omitempty"`

	Fingerprint string `json:"fingerprint"`

	env      Environment
	topology affinity.Topology
}

func preRun(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreRun, fmt.Sprintf(format, args...))
}

// Prepare validates profile against the host and returns the plan.
// It spawns no workers. The profile is copied.
func Prepare(profile *config.Profile, env Environment) (*Plan, error) {
	env = env.withDefaults()
	logger := env.Logger.With("component", "runner")

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreRun, err)
	}
	plan := &Plan{Profile: *profile, env: env, Ratio: profile.MixedRatio.Normalize()}
	warn := func(message string, args ...any) {
		plan.Warnings = append(plan.Warnings, message)
		logger.Warn(message, args...)
	}

	if _, _, err := hwinfo.ReadProcStat(env.FS); err != nil {
		return nil, fmt.Errorf("%w: tick counters unreadable: %w", ErrPreRun, err)
	}

	topology, err := env.Topology.Allowed()
	if err != nil {
		return nil, fmt.Errorf("%w: reading allowed CPU set: %w", ErrPreRun, err)
	}
	if topology.Count() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrPreRun, affinity.ErrNoCPUs)
	}
	plan.topology = topology
	plan.AllowedCPUs = topology.CPUs()

	threads := 1
	if profile.Mode == config.Multi {
		threads = topology.Count()
		if profile.Threads > 0 {
			threads = profile.Threads
		}
	}
	if threads > profile.MaxThreads {
		return nil, preRun("planned threads (%d) exceed max_threads (%d)", threads, profile.MaxThreads)
	}
	if threads > config.HardMaxThreads {
		return nil, preRun("refusing to create more than %d threads", config.HardMaxThreads)
	}
	plan.Threads = threads
	for index := range threads {
		cpu := topology.At(index % topology.Count())
		if !slices.Contains(plan.WorkerCPUs, cpu) {
			plan.WorkerCPUs = append(plan.WorkerCPUs, cpu)
		}
	}

	plan.Capabilities = env.Capabilities.Capabilities()
	if err := workload.CheckCapability(profile.Workload, plan.Capabilities); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreRun, err)
	}
	plan.Processor = env.Processor()

	if sensor, ok := hwinfo.FindTemperatureSensor(env.FS); ok {
		plan.TemperatureSensor = sensor
		if celsius, ok := hwinfo.ReadTemperature(env.FS, sensor); ok {
			plan.TemperatureCelsius = &celsius
		} else {
			warn("temperature sensor found but its reading is unusable", "sensor", sensor)
		}
	} else {
		warn("temperature sensor not found; temperature auto-stop and throttling disabled")
	}

	if profile.DCL.Path != "" {
		table, err := dcl.LoadTable(profile.DCL.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPreRun, err)
		}
		entry, ok := table.Lookup(profile.Workload)
		if !ok {
			return nil, preRun("DCL table %s has no entry for %s", profile.DCL.Path, profile.Workload)
		}
		plan.DCL = &entry
		plan.DCLSKU = table.SKU
	}

	if profile.PreciseFrequency.Enabled {
		plan.PreciseBaseKHz = profile.PreciseFrequency.BaseKHz
		if plan.PreciseBaseKHz == 0 {
			if base, ok := hwinfo.ReadBaseFrequency(env.FS, plan.AllowedCPUs[0]); ok {
				plan.PreciseBaseKHz = base
			} else {
				plan.PreciseBaseKHz = plan.Processor.BaseKHz
			}
		}
		if plan.PreciseBaseKHz == 0 {
			warn("no base frequency known; precise frequency disabled, using cpufreq")
		}
	}

	if plan.needsController() {
		if _, err := plan.newController(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPreRun, err)
		}
		if err := plan.checkFrequencyLimits(); err != nil {
			return nil, err
		}
	}

	refused, err := affinity.CheckPinning(env.Pinner, affinity.NewTopology(plan.WorkerCPUs))
	for cpu, pinErr := range refused {
		warn(fmt.Sprintf("cannot pin to cpu %d", cpu), "cpu", cpu, "error", pinErr)
	}
	if err != nil {
		warn("restoring thread affinity after the pinning check failed", "error", err)
	}

	fingerprint, err := plan.fingerprint()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreRun, err)
	}
	plan.Fingerprint = fingerprint

	logger.Info("run planned",
		"kind", profile.Workload.String(),
		"threads", threads,
		"utilization_percent", profile.Utilization,
		"duration", profile.Duration.Std(),
		"sensor", plan.TemperatureSensor,
		"fingerprint", plan.Fingerprint,
	)
	return plan, nil
}

// needsController reports whether the run writes cpufreq policy.
func (p *Plan) needsController() bool {
	profile := p.Profile
	throttle := profile.Throttle.Enabled && p.TemperatureSensor != ""
	return throttle ||
		profile.Governor != "" ||
		profile.RestoreFrequencyOnExit ||
		len(profile.FrequencyLimits) > 0
}

// newController builds the frequency controller over every allowed
// CPU. Prepare builds one only to validate its settings.
func (p *Plan) newController() (*freqctl.Controller, error) {
	return freqctl.NewController(freqctl.ControllerConfig{
		Writer:           freqctl.NewWriter(p.env.FS),
		CPUs:             p.AllowedCPUs,
		ThresholdCelsius: p.Profile.Throttle.ThresholdCelsius,
		StepPercent:      p.Profile.Throttle.StepPercent,
		FloorKHz:         p.Profile.Throttle.FloorKHz,
		Logger:           p.env.Logger,
	})
}

// checkFrequencyLimits refuses limits for CPUs outside the allowed set
// and, where the driver reports them, bounds outside the hardware
// range.
func (p *Plan) checkFrequencyLimits() error {
	writer := freqctl.NewWriter(p.env.FS)
	for _, cpu := range slices.Sorted(maps.Keys(p.Profile.FrequencyLimits)) {
		if !slices.Contains(p.AllowedCPUs, cpu) {
			return preRun("frequency_limits: cpu %d is not in the allowed set %v", cpu, p.AllowedCPUs)
		}
		hardware, err := writer.HardwareLimits(cpu)
		if err != nil {
			continue
		}
		limits := p.Profile.FrequencyLimits[cpu]
		for _, bound := range []uint64{limits.MinKHz, limits.MaxKHz} {
			if bound != 0 && (bound < hardware.MinKHz || bound > hardware.MaxKHz) {
				return preRun("frequency_limits: cpu %d bound %d kHz outside hardware range %d..%d kHz",
					cpu, bound, hardware.MinKHz, hardware.MaxKHz)
			}
		}
	}
	return nil
}

// fingerprint digests the fields that determine what a run does, so
// two logs can be checked for having run the same plan.
func (p *Plan) fingerprint() (string, error) {
	input := struct {
		Profile    config.Profile `json:"profile"`
		Threads    int            `json:"threads"`
		WorkerCPUs []int          `json:"worker_cpus"`
		DCL        *dcl.Entry     `json:"dcl,omitempty"`
	}{p.Profile, p.Threads, p.WorkerCPUs, p.DCL}
	encoded, err := codec.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encoding plan: %w", err)
	}
	sum := blake3.Sum256(encoded)
	return hex.EncodeToString(sum[:16]), nil
}

// IsPreRun reports whether err is a pre-run validation failure.
func IsPreRun(err error) bool { return errors.Is(err, ErrPreRun) }
