// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package freqctl

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Controller defaults.
const (
	DefaultThresholdCelsius = 85.0
	DefaultStepPercent      = 10
	DefaultFloorKHz         = 800_000
)

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Writer *Writer
	CPUs   []int

	ThresholdCelsius float64
	StepPercent      int
	FloorKHz         uint64

	Logger *slog.Logger
}

// Step describes one throttling evaluation that wrote new maxima.
type Step struct {
	TemperatureCelsius float64        `json:"temperature_c"`
	MaxKHz             map[int]uint64 `json:"max_khz"`
}

// Controller lowers scaling_max_freq on every managed CPU while the
// temperature is at or above the threshold. It is not safe for
// concurrent use; the orchestrator is its only caller.
type Controller struct {
	writer    *Writer
	cpus      []int
	threshold float64
	step      uint64
	floor     uint64
	logger    *slog.Logger

	// current is the last committed maximum per CPU.
	current map[int]uint64
	// original holds the policy captured by Capture, for Restore.
	original    map[int]uint64
	originalMin map[int]uint64
	originalGov map[int]string
	governorSet bool
	limitsSet   bool
	steps       int
	warnedRead  map[int]bool
	warnedWrite map[int]bool
}

// NewController validates config and applies defaults for zero fields.
func NewController(config ControllerConfig) (*Controller, error) {
	if config.Writer == nil {
		return nil, errors.New("freqctl: controller needs a writer")
	}
	if config.ThresholdCelsius == 0 {
		config.ThresholdCelsius = DefaultThresholdCelsius
	}
	if config.StepPercent == 0 {
		config.StepPercent = DefaultStepPercent
	}
	if config.StepPercent < 1 || config.StepPercent > 99 {
		return nil, fmt.Errorf("freqctl: step %d%% outside [1,99]", config.StepPercent)
	}
	if config.FloorKHz == 0 {
		config.FloorKHz = DefaultFloorKHz
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	cpus := slices.Clone(config.CPUs)
	slices.Sort(cpus)
	return &Controller{
		writer:      config.Writer,
		cpus:        slices.Compact(cpus),
		threshold:   config.ThresholdCelsius,
		step:        uint64(config.StepPercent),
		floor:       config.FloorKHz,
		logger:      config.Logger.With("component", "freqctl"),
		current:     make(map[int]uint64),
		warnedRead:  make(map[int]bool),
		warnedWrite: make(map[int]bool),
	}, nil
}

// Capture records the current bounds and governor of every managed
// CPU so Restore can put them back. CPUs that cannot be read are
// skipped.
func (c *Controller) Capture() {
	c.original = make(map[int]uint64, len(c.cpus))
	c.originalMin = make(map[int]uint64, len(c.cpus))
	c.originalGov = make(map[int]string, len(c.cpus))
	for _, cpu := range c.cpus {
		if maximum, err := c.writer.ReadMax(cpu); err == nil {
			c.original[cpu] = maximum
			c.current[cpu] = maximum
		}
		if minimum, err := c.writer.ReadMin(cpu); err == nil {
			c.originalMin[cpu] = minimum
		}
		if governor, err := c.writer.Governor(cpu); err == nil {
			c.originalGov[cpu] = governor
		}
	}
}

// SetGovernor writes governor to every managed CPU. Returns the first
// failure after attempting all CPUs.
func (c *Controller) SetGovernor(governor string) error {
	c.governorSet = true
	var firstErr error
	for _, cpu := range c.cpus {
		if err := c.writer.SetGovernor(cpu, governor); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ApplyLimits writes a per-CPU min/max table. Every CPU in table must
// be managed; nothing is written otherwise. Restore puts back the
// captured minima as well as the maxima once limits were applied.
func (c *Controller) ApplyLimits(table Table) error {
	for cpu := range table {
		if !slices.Contains(c.cpus, cpu) {
			return fmt.Errorf("freqctl: cpu %d is not managed", cpu)
		}
	}
	c.limitsSet = true
	err := c.writer.ApplyTable(table)
	for cpu, limits := range table {
		if limits.MaxKHz == 0 {
			continue
		}
		if maximum, readErr := c.writer.ReadMax(cpu); readErr == nil {
			c.current[cpu] = maximum
		}
	}
	return err
}

// Evaluate runs one control step. present is false when the interval
// had no valid temperature reading, which never throttles. Returns the
// step taken, or nil when nothing was written.
func (c *Controller) Evaluate(temperature float64, present bool) *Step {
	if !present || temperature < c.threshold {
		return nil
	}

	written := make(map[int]uint64, len(c.cpus))
	for _, cpu := range c.cpus {
		currentMax, ok := c.current[cpu]
		if !ok {
			read, err := c.writer.ReadMax(cpu)
			if err != nil {
				if !c.warnedRead[cpu] {
					c.warnedRead[cpu] = true
					c.logger.Warn("cannot read scaling maximum, cpu not throttled", "cpu", cpu, "error", err)
				}
				continue
			}
			currentMax = read
		}

		next := max(c.floor, currentMax*(100-c.step)/100)
		if next >= currentMax {
			// At or below the floor already; throttling never raises.
			c.current[cpu] = currentMax
			continue
		}
		if err := c.writer.SetMax(cpu, next); err != nil {
			if !c.warnedWrite[cpu] {
				c.warnedWrite[cpu] = true
				c.logger.Warn("cannot write scaling maximum", "cpu", cpu, "kHz", next, "error", err)
			}
			c.current[cpu] = currentMax
			continue
		}
		c.current[cpu] = next
		written[cpu] = next
	}
	if len(written) == 0 {
		return nil
	}
	c.steps++
	c.logger.Info("throttled maximum frequency",
		"temperature_c", temperature,
		"threshold_c", c.threshold,
		"cpus", len(written),
		"step", c.steps,
	)
	return &Step{TemperatureCelsius: temperature, MaxKHz: written}
}

// Steps returns the number of evaluations that wrote new maxima.
func (c *Controller) Steps() int { return c.steps }

// Captured returns copies of the maxima and governors recorded by
// Capture.
func (c *Controller) Captured() (map[int]uint64, map[int]string) {
	return maps.Clone(c.original), maps.Clone(c.originalGov)
}

// CapturedMin returns a copy of the minima recorded by Capture.
func (c *Controller) CapturedMin() map[int]uint64 {
	return maps.Clone(c.originalMin)
}

// CurrentMax returns the last committed maximum for cpu.
func (c *Controller) CurrentMax(cpu int) (uint64, bool) {
	value, ok := c.current[cpu]
	return value, ok
}

// Restore writes back the maxima and, if SetGovernor or ApplyLimits
// was called, the governors or minima captured by Capture. Call only
// after every worker has been joined. Returns the first failure after
// attempting all CPUs.
func (c *Controller) Restore() error {
	var firstErr error
	for _, cpu := range c.cpus {
		if c.governorSet {
			if governor, ok := c.originalGov[cpu]; ok {
				if err := c.writer.SetGovernor(cpu, governor); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
		original, ok := c.original[cpu]
		if !ok {
			continue
		}
		if minimum, known := c.originalMin[cpu]; known && c.limitsSet {
			if err := c.writer.SetMinMax(cpu, Limits{MinKHz: minimum, MaxKHz: original}); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			c.current[cpu] = original
			continue
		}
		if current, known := c.current[cpu]; known && current == original {
			continue
		}
		if err := c.writer.SetMax(cpu, original); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.current[cpu] = original
	}
	return firstErr
}
