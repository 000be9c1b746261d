// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/coreburn/lib/freqctl"
	"github.com/bureau-foundation/coreburn/lib/telemetrylog"
	"github.com/bureau-foundation/coreburn/lib/workload"
)

// EnvironmentVariable names the profile file for Load.
const EnvironmentVariable = "COREBURN_CONFIG"

// HardMaxThreads is the ceiling no profile may raise max_threads above.
const HardMaxThreads = 256

// Mode selects how many workers a run plans.
type Mode string

const (
	// Single runs one worker.
	Single Mode = "single"
	// Multi runs one worker per allowed CPU unless Threads is set.
	Multi Mode = "multi"
)

// Profile is one run configuration.
type Profile struct {
	Mode Mode `yaml:"mode" json:"mode"`

	// Threads overrides the worker count of multi mode. 0 means one
	// worker per allowed CPU.
	Threads int `yaml:"threads" json:"threads"`

	// MaxThreads is the refusal threshold for the planned count.
	MaxThreads int `yaml:"max_threads" json:"max_threads"`

	// Utilization is the per-worker duty cycle in percent, 10..100.
	Utilization int `yaml:"utilization" json:"utilization"`

	Duration      Duration `yaml:"duration" json:"duration"`
	DurationLimit Duration `yaml:"duration_limit" json:"duration_limit"`

	Workload workload.Kind `yaml:"workload" json:"workload"`

	// MixedRatio weights the integer, float and vector shares of a
	// MIXED workload.
	MixedRatio workload.Ratio `yaml:"mixed_ratio" json:"mixed_ratio"`

	// ControlPeriod is the duty-cycle period of every worker.
	ControlPeriod Duration `yaml:"control_period" json:"control_period"`

	// Interval is the telemetry and control interval.
	Interval Duration `yaml:"interval" json:"interval"`

	// StopTemperatureCelsius ends the run when reached.
	StopTemperatureCelsius float64 `yaml:"stop_temperature_c" json:"stop_temperature_c"`

	Throttle ThrottleConfig `yaml:"throttle" json:"throttle"`

	// Governor is written to every managed CPU before the run. Empty
	// leaves the governor alone.
	Governor string `yaml:"governor" json:"governor,omitempty"`

	// FrequencyLimits sets scaling_min_freq and scaling_max_freq per
	// CPU id before the run. A zero bound is left unchanged.
	FrequencyLimits freqctl.Table `yaml:"frequency_limits" json:"frequency_limits,omitempty"`

	PreciseFrequency PreciseFrequencyConfig `yaml:"precise_frequency" json:"precise_frequency"`

	// Power enables RAPL energy sampling.
	Power bool `yaml:"power" json:"power"`

	DCL DCLConfig `yaml:"dcl" json:"dcl"`

	Log LogConfig `yaml:"log" json:"log"`

	// RestoreFrequencyOnExit writes back the maxima and governors
	// captured before the run once every worker has been joined.
	RestoreFrequencyOnExit bool `yaml:"restore_frequency_on_exit" json:"restore_frequency_on_exit"`

	// FrequencyState is where the policy captured for restore is kept
	// while the run may have changed it. A run that finds a state file
	// from the current boot re-applies it first. Empty disables it.
	FrequencyState string `yaml:"frequency_state" json:"frequency_state,omitempty"`

	// AffinityPoll is how often the allowed CPU set is re-read.
	AffinityPoll Duration `yaml:"affinity_poll" json:"affinity_poll"`
}

// ThrottleConfig configures the thermal frequency controller.
type ThrottleConfig struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	ThresholdCelsius float64 `yaml:"threshold_c" json:"threshold_c"`
	StepPercent      int     `yaml:"step_percent" json:"step_percent"`
	FloorKHz         uint64  `yaml:"floor_khz" json:"floor_khz"`
}

// PreciseFrequencyConfig configures APERF/MPERF frequency sampling.
type PreciseFrequencyConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// BaseKHz scales the counter ratio. 0 detects it from cpufreq
	// base_frequency, then from cpuid.
	BaseKHz uint64 `yaml:"base_khz" json:"base_khz"`
}

// DCLConfig configures frequency validation.
type DCLConfig struct {
	// Path is a .yaml/.yml/.json/.jsonc table. Empty disables
	// validation.
	Path string `yaml:"path" json:"path,omitempty"`

	// Streaming validates the running mean every interval in addition
	// to the final verdict.
	Streaming bool `yaml:"streaming" json:"streaming"`
}

// LogConfig configures the telemetry log.
type LogConfig struct {
	// Path of the log. Empty disables it.
	Path        string                   `yaml:"path" json:"path,omitempty"`
	Append      bool                     `yaml:"append" json:"append"`
	Compression telemetrylog.Compression `yaml:"compression" json:"compression"`
}

// Default returns the base profile every file and flag overlays. It
// has no duration; a run must set one.
func Default() *Profile {
	return &Profile{
		Mode:                   Multi,
		MaxThreads:             HardMaxThreads,
		Utilization:            100,
		DurationLimit:          Duration(24 * time.Hour),
		Workload:               workload.KindInt,
		MixedRatio:             workload.EqualRatio,
		ControlPeriod:          Duration(workload.DefaultPeriod),
		Interval:               Duration(time.Second),
		StopTemperatureCelsius: 90,
		Throttle: ThrottleConfig{
			ThresholdCelsius: 85,
			StepPercent:      10,
			FloorKHz:         800_000,
		},
		AffinityPoll: Duration(time.Second),
	}
}

// Load reads the file named by COREBURN_CONFIG.
func Load() (*Profile, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, errors.New(EnvironmentVariable + " environment variable not set; " +
			"set it to the path of a run profile, or use --config")
	}
	return LoadFile(path)
}

// LoadFile reads a profile file over Default.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	profile, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return profile, nil
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(data []byte) (*Profile, error) {
	profile := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(profile); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	profile.expandVariables()
	return profile, nil
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandVariables expands ${VAR} patterns in path fields from the
// process environment.
func (p *Profile) expandVariables() {
	p.Log.Path = expandVars(p.Log.Path)
	p.DCL.Path = expandVars(p.DCL.Path)
	p.FrequencyState = expandVars(p.FrequencyState)
}

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}

// Validate checks every field that does not depend on the host.
func (p *Profile) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch Mode(strings.ToLower(string(p.Mode))) {
	case Single, Multi:
		p.Mode = Mode(strings.ToLower(string(p.Mode)))
	default:
		add("mode %q: want single or multi", p.Mode)
	}
	if p.MaxThreads < 1 || p.MaxThreads > HardMaxThreads {
		add("max_threads %d: want 1..%d", p.MaxThreads, HardMaxThreads)
	}
	if p.Threads < 0 {
		add("threads %d: must not be negative", p.Threads)
	}
	if p.Threads > 0 && p.Mode == Single && p.Threads != 1 {
		add("threads %d: single mode runs exactly one worker", p.Threads)
	}
	if p.Utilization < workload.MinUtilization || p.Utilization > workload.MaxUtilization {
		add("utilization %d%%: want %d..%d", p.Utilization, workload.MinUtilization, workload.MaxUtilization)
	}
	if p.Duration <= 0 {
		add("duration must be positive")
	}
	if p.DurationLimit <= 0 {
		add("duration_limit must be positive")
	} else if p.Duration > p.DurationLimit {
		add("duration %s exceeds duration_limit %s", p.Duration, p.DurationLimit)
	}
	if p.ControlPeriod < Duration(time.Millisecond) {
		add("control_period %s: want at least 1ms", p.ControlPeriod)
	}
	if p.Interval < Duration(10*time.Millisecond) {
		add("interval %s: want at least 10ms", p.Interval)
	}
	if p.AffinityPoll < Duration(10*time.Millisecond) {
		add("affinity_poll %s: want at least 10ms", p.AffinityPoll)
	}
	if p.StopTemperatureCelsius <= 0 {
		add("stop_temperature_c %.1f: must be positive", p.StopTemperatureCelsius)
	}
	if p.Throttle.Enabled {
		if p.Throttle.ThresholdCelsius <= 0 {
			add("throttle.threshold_c %.1f: must be positive", p.Throttle.ThresholdCelsius)
		}
		if p.Throttle.StepPercent < 1 || p.Throttle.StepPercent > 99 {
			add("throttle.step_percent %d: want 1..99", p.Throttle.StepPercent)
		}
		if p.Throttle.FloorKHz == 0 {
			add("throttle.floor_khz must be positive")
		}
	}
	for _, cpu := range slices.Sorted(maps.Keys(p.FrequencyLimits)) {
		limits := p.FrequencyLimits[cpu]
		switch {
		case cpu < 0:
			add("frequency_limits: cpu %d must not be negative", cpu)
		case limits.MinKHz == 0 && limits.MaxKHz == 0:
			add("frequency_limits cpu %d: set min_khz, max_khz or both", cpu)
		case limits.MaxKHz != 0 && limits.MinKHz > limits.MaxKHz:
			add("frequency_limits cpu %d: min_khz %d above max_khz %d", cpu, limits.MinKHz, limits.MaxKHz)
		}
	}
	if p.DCL.Streaming && p.DCL.Path == "" {
		add("dcl.streaming needs dcl.path")
	}
	if p.Log.Append && p.Log.Path == "" {
		add("log.append needs log.path")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid profile: %s", strings.Join(problems, "; "))
	}
	return nil
}
