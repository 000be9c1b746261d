// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/coreburn/lib/dcl"
	"github.com/bureau-foundation/coreburn/lib/freqctl"
	"github.com/bureau-foundation/coreburn/lib/hwinfo"
)

// Frequency sources of a CoreSample.
const (
	FrequencyMSR     = "msr"
	FrequencyCPUFreq = "cpufreq"
)

// Snapshot is the telemetry of one control interval. It is not
// modified after it is handed out.
type Snapshot struct {
	Sequence int           `json:"sequence"`
	Time     time.Time     `json:"time"`
	Elapsed  time.Duration `json:"elapsed_ns"`

	Cores []CoreSample `json:"cores"`

	TemperatureCelsius *float64             `json:"temperature_c,omitempty"`
	Power              *hwinfo.PowerReading `json:"power,omitempty"`

	Workers []WorkerSample `json:"workers"`

	// MeasuredKHz is the mean frequency of the CPUs hosting workers,
	// 0 when none of them reported one.
	MeasuredKHz float64 `json:"measured_khz"`

	Throttle   *freqctl.Step `json:"throttle,omitempty"`
	Validation *dcl.Record   `json:"validation,omitempty"`
}

// CoreSample is one logical CPU in a Snapshot.
type CoreSample struct {
	CPU                int     `json:"cpu"`
	UtilizationPercent float64 `json:"utilization_percent"`
	FrequencyKHz       uint64  `json:"frequency_khz,omitempty"`
	FrequencySource    string  `json:"frequency_source,omitempty"`
}

// WorkerSample is one worker in a Snapshot.
type WorkerSample struct {
	Index int `json:"index"`
	CPU   int `json:"cpu"`
	// Operations completed during the interval.
	Operations uint64 `json:"operations"`
}

// Observer receives every snapshot on the control goroutine. It must
// not block for long: the next interval waits for it.
type Observer interface {
	Snapshot(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Snapshot implements Observer.
func (f ObserverFunc) Snapshot(snapshot Snapshot) { f(snapshot) }

// collector reads the host counters behind a Snapshot. Each degraded
// source warns once and is then skipped or replaced.
type collector struct {
	env    Environment
	sensor string
	logger *slog.Logger

	previous []hwinfo.CoreTicks

	precise *hwinfo.PreciseFrequency
	power   *hwinfo.PowerMeter

	warnedTicks bool
}

// newCollector takes the first tick reading and starts the optional
// register samplers. Register failures disable that sampler.
func newCollector(plan *Plan, logger *slog.Logger) (*collector, error) {
	env := plan.env
	c := &collector{env: env, sensor: plan.TemperatureSensor, logger: logger}

	_, cores, err := hwinfo.ReadProcStat(env.FS)
	if err != nil {
		return nil, err
	}
	c.previous = cores

	if plan.PreciseBaseKHz > 0 {
		precise := hwinfo.NewPreciseFrequency(env.MSR, plan.PreciseBaseKHz)
		if err := precise.Begin(plan.AllowedCPUs); err != nil {
			c.warnRegisters("precise frequency unavailable, using cpufreq", err)
		} else {
			c.precise = precise
		}
	}
	if plan.Profile.Power {
		meter, err := hwinfo.NewPowerMeter(env.MSR, plan.AllowedCPUs[0], env.Clock)
		if err != nil {
			c.warnRegisters("power domains unavailable", err)
		} else {
			c.power = meter
		}
	}
	return c, nil
}

func (c *collector) warnRegisters(message string, err error) {
	c.logger.Warn(message, "error", err, "no_privilege", errors.Is(err, hwinfo.ErrMSRUnavailable))
}

// sample reads one interval. cpus is the allowed set at the end of the
// interval; the precise sampler restarts on it.
func (c *collector) sample(cpus []int) ([]CoreSample, *float64, *hwinfo.PowerReading) {
	var precise map[int]uint64
	if c.precise != nil {
		result, err := c.precise.End()
		if err == nil {
			err = c.precise.Begin(cpus)
		}
		if err != nil {
			c.warnRegisters("precise frequency read failed, using cpufreq for the rest of the run", err)
			c.precise = nil
		} else {
			precise = result
		}
	}

	var cores []CoreSample
	_, current, err := hwinfo.ReadProcStat(c.env.FS)
	if err != nil {
		if !c.warnedTicks {
			c.warnedTicks = true
			c.logger.Warn("reading tick counters failed; utilization omitted", "error", err)
		}
	} else {
		c.warnedTicks = false
		utilization := hwinfo.SampleUtilization(c.previous, current)
		cores = make([]CoreSample, len(current))
		for i, ticks := range current {
			cores[i] = CoreSample{CPU: ticks.CPU, UtilizationPercent: utilization[i]}
		}
		c.previous = current
	}
	if cores == nil {
		cores = make([]CoreSample, len(cpus))
		for i, cpu := range cpus {
			cores[i] = CoreSample{CPU: cpu}
		}
	}
	for i := range cores {
		if kHz, ok := precise[cores[i].CPU]; ok {
			cores[i].FrequencyKHz = kHz
			cores[i].FrequencySource = FrequencyMSR
		} else if kHz, ok := hwinfo.ReadCoreFrequency(c.env.FS, cores[i].CPU); ok {
			cores[i].FrequencyKHz = kHz
			cores[i].FrequencySource = FrequencyCPUFreq
		}
	}

	var temperature *float64
	if celsius, ok := hwinfo.ReadTemperature(c.env.FS, c.sensor); ok {
		temperature = &celsius
	}

	var power *hwinfo.PowerReading
	if c.power != nil {
		reading, err := c.power.Sample()
		if err != nil {
			c.warnRegisters("power read failed, power omitted for the rest of the run", err)
			c.power = nil
		} else {
			power = &reading
		}
	}
	return cores, temperature, power
}

// finalTemperature reads the sensor once more for the result.
func (c *collector) finalTemperature() *float64 {
	if celsius, ok := hwinfo.ReadTemperature(c.env.FS, c.sensor); ok {
		return &celsius
	}
	return nil
}

// measuredKHz averages the frequency of the given CPUs over the cores
// that reported one.
func measuredKHz(cores []CoreSample, cpus map[int]bool) float64 {
	var sum float64
	var count int
	for _, core := range cores {
		if cpus[core.CPU] && core.FrequencyKHz > 0 {
			sum += float64(core.FrequencyKHz)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
