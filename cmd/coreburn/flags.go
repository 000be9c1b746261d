// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/coreburn/lib/config"
	"github.com/bureau-foundation/coreburn/lib/telemetrylog"
	"github.com/bureau-foundation/coreburn/lib/workload"
)

// cliFlags holds every flag. Profile fields are only overlaid when the
// flag was given, so a value from --config is not reset to the flag
// default.
type cliFlags struct {
	set *pflag.FlagSet

	configPath  string
	check       bool
	jsonOutput  bool
	debug       bool
	showVersion bool

	mode            string
	threads         int
	maxThreads      int
	utilization     int
	duration        config.Duration
	durationLimit   config.Duration
	kind            string
	ratio           string
	controlPeriod   config.Duration
	interval        config.Duration
	stopTemperature float64

	throttle          bool
	throttleThreshold float64
	throttleStep      int
	throttleFloor     uint64
	governor          string
	restore           bool
	frequencyState    string

	precise   bool
	baseKHz   uint64
	power     bool
	dclPath   string
	streaming bool

	logPath        string
	logAppend      bool
	logCompression string

	affinityPoll config.Duration
}

func newFlags() *cliFlags {
	f := &cliFlags{set: pflag.NewFlagSet("coreburn", pflag.ContinueOnError)}
	set := f.set
	set.SetOutput(io.Discard)
	set.SortFlags = false

	set.StringVarP(&f.configPath, "config", "c", "", "YAML run profile (default $"+config.EnvironmentVariable+")")
	set.BoolVar(&f.check, "check", false, "validate the plan and the host, print the plan and exit")
	set.BoolVar(&f.jsonOutput, "json", false, "print the plan or result as JSON")
	set.BoolVar(&f.debug, "debug", false, "log at debug level, including every interval")
	set.BoolVar(&f.showVersion, "version", false, "print version information and exit")

	set.StringVar(&f.mode, "mode", "", "single (one worker) or multi (one per allowed CPU)")
	set.IntVarP(&f.threads, "threads", "t", 0, "worker count in multi mode (0 = one per allowed CPU)")
	set.IntVar(&f.maxThreads, "max-threads", 0, fmt.Sprintf("refuse plans with more workers than this (at most %d)", config.HardMaxThreads))
	set.IntVarP(&f.utilization, "util", "u", 0, "per-worker duty cycle in percent, 10 to 100")
	set.VarP(&f.duration, "duration", "d", "run length, e.g. 90s, 5m, 2h or 90 (seconds)")
	set.Var(&f.durationLimit, "duration-limit", "refuse durations above this")
	set.StringVar(&f.kind, "type", "", "workload kind: "+kindNames())
	set.StringVar(&f.ratio, "ratio", "", "MIXED integer:float:vector weights, e.g. 3:2:1")
	set.Var(&f.controlPeriod, "control-period", "worker duty-cycle period")
	set.Var(&f.interval, "log-interval", "telemetry and control interval")
	set.Float64Var(&f.stopTemperature, "temp-threshold", 0, "stop the run at this temperature in Celsius")

	set.BoolVar(&f.throttle, "throttle", false, "lower scaling_max_freq while above --throttle-temp")
	set.Float64Var(&f.throttleThreshold, "throttle-temp", 0, "throttling threshold in Celsius")
	set.IntVar(&f.throttleStep, "throttle-step", 0, "percent taken off the maximum per step")
	set.Uint64Var(&f.throttleFloor, "throttle-floor", 0, "lowest maximum throttling writes, in kHz")
	set.StringVar(&f.governor, "governor", "", "scaling governor to set on every CPU before the run")
	set.BoolVar(&f.restore, "restore-freq", false, "restore the captured maxima and governors after the run")
	set.StringVar(&f.frequencyState, "freq-state", "", "file recording the policy to restore if the run is killed")

	set.BoolVar(&f.precise, "precise-freq", false, "measure frequency from APERF/MPERF (needs MSR access)")
	set.Uint64Var(&f.baseKHz, "base-freq", 0, "APERF/MPERF base frequency in kHz (0 = detect)")
	set.BoolVar(&f.power, "power", false, "sample RAPL package, core and DRAM power (needs MSR access)")
	set.StringVar(&f.dclPath, "dcl", "", "expected-frequency table (.yaml, .yml, .json or .jsonc)")
	set.BoolVar(&f.streaming, "dcl-streaming", false, "validate the running mean every interval")

	set.StringVarP(&f.logPath, "log", "l", "", "telemetry log path")
	set.BoolVar(&f.logAppend, "log-append", false, "append to an existing telemetry log without a header")
	set.StringVar(&f.logCompression, "log-compression", "", "telemetry log compression: none, zstd or lz4")

	set.Var(&f.affinityPoll, "affinity-poll", "how often the allowed CPU set is re-read")
	return f
}

func kindNames() string {
	var names []string
	for _, kind := range workload.Kinds() {
		names = append(names, kind.String())
	}
	return strings.Join(names, ", ")
}

// overlay writes every flag the user set into profile.
func (f *cliFlags) overlay(profile *config.Profile) error {
	changed := f.set.Changed

	if changed("mode") {
		profile.Mode = config.Mode(strings.ToLower(f.mode))
	}
	if changed("threads") {
		profile.Threads = f.threads
	}
	if changed("max-threads") {
		profile.MaxThreads = f.maxThreads
	}
	if changed("util") {
		profile.Utilization = f.utilization
	}
	if changed("duration") {
		profile.Duration = f.duration
	}
	if changed("duration-limit") {
		profile.DurationLimit = f.durationLimit
	}
	if changed("type") {
		kind, err := workload.ParseKind(f.kind)
		if err != nil {
			return fmt.Errorf("--type: %w", err)
		}
		profile.Workload = kind
	}
	if changed("ratio") {
		ratio, err := workload.ParseRatio(f.ratio)
		if err != nil {
			return fmt.Errorf("--ratio: %w", err)
		}
		profile.MixedRatio = ratio
	}
	if changed("control-period") {
		profile.ControlPeriod = f.controlPeriod
	}
	if changed("log-interval") {
		profile.Interval = f.interval
	}
	if changed("temp-threshold") {
		profile.StopTemperatureCelsius = f.stopTemperature
	}

	if changed("throttle") {
		profile.Throttle.Enabled = f.throttle
	}
	if changed("throttle-temp") {
		profile.Throttle.ThresholdCelsius = f.throttleThreshold
	}
	if changed("throttle-step") {
		profile.Throttle.StepPercent = f.throttleStep
	}
	if changed("throttle-floor") {
		profile.Throttle.FloorKHz = f.throttleFloor
	}
	if changed("governor") {
		profile.Governor = f.governor
	}
	if changed("restore-freq") {
		profile.RestoreFrequencyOnExit = f.restore
	}
	if changed("freq-state") {
		profile.FrequencyState = f.frequencyState
	}

	if changed("precise-freq") {
		profile.PreciseFrequency.Enabled = f.precise
	}
	if changed("base-freq") {
		profile.PreciseFrequency.BaseKHz = f.baseKHz
		if f.baseKHz > 0 && !changed("precise-freq") {
			profile.PreciseFrequency.Enabled = true
		}
	}
	if changed("power") {
		profile.Power = f.power
	}
	if changed("dcl") {
		profile.DCL.Path = f.dclPath
	}
	if changed("dcl-streaming") {
		profile.DCL.Streaming = f.streaming
	}

	if changed("log") {
		profile.Log.Path = f.logPath
	}
	if changed("log-append") {
		profile.Log.Append = f.logAppend
	}
	if changed("log-compression") {
		compression, err := telemetrylog.ParseCompression(f.logCompression)
		if err != nil {
			return fmt.Errorf("--log-compression: %w", err)
		}
		profile.Log.Compression = compression
	}
	if changed("affinity-poll") {
		profile.AffinityPoll = f.affinityPoll
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
