// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package freqctl

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/bureau-foundation/coreburn/lib/hwinfo"
)

// Limits is a min/max pair in kHz. Zero leaves that bound unchanged.
type Limits struct {
	MinKHz uint64 `json:"min_khz,omitempty" yaml:"min_khz"`
	MaxKHz uint64 `json:"max_khz,omitempty" yaml:"max_khz"`
}

// Table maps CPU ids to limits.
type Table map[int]Limits

// Writer reads and writes cpufreq policy files.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a Writer over fs.
func NewWriter(fs afero.Fs) *Writer {
	return &Writer{fs: fs}
}

func (w *Writer) write(cpu int, attribute, value string) error {
	path := hwinfo.CPUFreqPath(cpu, attribute)
	// No O_CREATE: a missing attribute means the driver lacks it.
	file, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := file.WriteString(value); err != nil {
		file.Close()
		return fmt.Errorf("writing %q to %s: %w", value, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func (w *Writer) readKHz(cpu int, attribute string) (uint64, error) {
	path := hwinfo.CPUFreqPath(cpu, attribute)
	value, ok := hwinfo.ReadSysfsUint64(w.fs, path)
	if !ok {
		return 0, fmt.Errorf("reading %s: missing or not an integer", path)
	}
	return value, nil
}

// Governor returns the CPU's scaling governor.
func (w *Writer) Governor(cpu int) (string, error) {
	path := hwinfo.CPUFreqPath(cpu, hwinfo.ScalingGovernorFile)
	governor := hwinfo.ReadSysfsString(w.fs, path)
	if governor == "" {
		return "", fmt.Errorf("reading %s: missing or empty", path)
	}
	return governor, nil
}

// SetGovernor writes the CPU's scaling governor. When the driver lists
// its available governors, an unlisted name is refused before writing.
func (w *Writer) SetGovernor(cpu int, governor string) error {
	available := hwinfo.ReadSysfsString(w.fs, hwinfo.CPUFreqPath(cpu, hwinfo.AvailableGovernorsFile))
	if available != "" && !slices.Contains(strings.Fields(available), governor) {
		return fmt.Errorf("cpu %d: governor %q not available (have %s)", cpu, governor, available)
	}
	return w.write(cpu, hwinfo.ScalingGovernorFile, governor)
}

// ReadMax returns the CPU's current scaling_max_freq.
func (w *Writer) ReadMax(cpu int) (uint64, error) {
	return w.readKHz(cpu, hwinfo.ScalingMaxFreqFile)
}

// ReadMin returns the CPU's current scaling_min_freq.
func (w *Writer) ReadMin(cpu int) (uint64, error) {
	return w.readKHz(cpu, hwinfo.ScalingMinFreqFile)
}

// HardwareLimits returns cpuinfo_min_freq and cpuinfo_max_freq.
func (w *Writer) HardwareLimits(cpu int) (Limits, error) {
	minimum, err := w.readKHz(cpu, hwinfo.CPUInfoMinFreqFile)
	if err != nil {
		return Limits{}, err
	}
	maximum, err := w.readKHz(cpu, hwinfo.CPUInfoMaxFreqFile)
	if err != nil {
		return Limits{}, err
	}
	return Limits{MinKHz: minimum, MaxKHz: maximum}, nil
}

// SetMax writes scaling_max_freq.
func (w *Writer) SetMax(cpu int, kHz uint64) error {
	return w.write(cpu, hwinfo.ScalingMaxFreqFile, strconv.FormatUint(kHz, 10))
}

// SetMinMax writes both bounds. The kernel rejects min > max at every
// intermediate step, so when the new minimum is above the current
// maximum the maximum is written first.
func (w *Writer) SetMinMax(cpu int, limits Limits) error {
	if limits.MinKHz != 0 && limits.MaxKHz != 0 && limits.MinKHz > limits.MaxKHz {
		return fmt.Errorf("cpu %d: min %d kHz above max %d kHz", cpu, limits.MinKHz, limits.MaxKHz)
	}
	writeMin := func() error {
		if limits.MinKHz == 0 {
			return nil
		}
		return w.write(cpu, hwinfo.ScalingMinFreqFile, strconv.FormatUint(limits.MinKHz, 10))
	}
	writeMax := func() error {
		if limits.MaxKHz == 0 {
			return nil
		}
		return w.SetMax(cpu, limits.MaxKHz)
	}

	maxFirst := false
	if limits.MinKHz != 0 {
		if currentMax, err := w.ReadMax(cpu); err == nil && limits.MinKHz > currentMax {
			maxFirst = true
		}
	}
	if maxFirst {
		if err := writeMax(); err != nil {
			return err
		}
		return writeMin()
	}
	if err := writeMin(); err != nil {
		return err
	}
	return writeMax()
}

// ApplyTable applies every entry in ascending CPU order and returns
// the first error after attempting all of them.
func (w *Writer) ApplyTable(table Table) error {
	cpus := make([]int, 0, len(table))
	for cpu := range table {
		cpus = append(cpus, cpu)
	}
	slices.Sort(cpus)

	var firstErr error
	for _, cpu := range cpus {
		if err := w.SetMinMax(cpu, table[cpu]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
