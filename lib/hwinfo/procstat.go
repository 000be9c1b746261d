// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ProcStatPath is the OS tick-counter interface.
const ProcStatPath = "/proc/stat"

// ErrNoTickCounters is returned when /proc/stat holds no parsable cpu
// lines.
var ErrNoTickCounters = errors.New("hwinfo: no cpu tick counters found")

// CoreTicks is one cumulative tick reading for a logical CPU (or for
// the aggregate line, where CPU is -1). The cpu lines of /proc/stat are
//
//	cpuN user nice system idle iowait irq softirq steal [guest guest_nice]
//
// Total = user + nice + system + idle + iowait + irq + softirq + steal
// Idle  = idle + iowait
//
// The first four fields are required. Kernels that omit the later ones
// simply contribute nothing for them.
type CoreTicks struct {
	CPU   int    `json:"cpu"`
	Total uint64 `json:"total"`
	Idle  uint64 `json:"idle"`
}

// ReadProcStat parses /proc/stat from fs. It returns the aggregate
// "cpu" line and the per-core "cpuN" lines in file order. Per-core
// lines with fewer than four numeric fields are skipped.
func ReadProcStat(fs afero.Fs) (CoreTicks, []CoreTicks, error) {
	file, err := fs.Open(ProcStatPath)
	if err != nil {
		return CoreTicks{}, nil, fmt.Errorf("opening %s: %w", ProcStatPath, err)
	}
	defer file.Close()

	aggregate := CoreTicks{CPU: -1}
	var haveAggregate bool
	var cores []CoreTicks

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "cpu") {
			// cpu lines come first; anything else ends the block.
			if len(cores) > 0 || haveAggregate {
				break
			}
			continue
		}

		ticks, ok := parseTickFields(fields[1:])
		if !ok {
			continue
		}

		label := fields[0][3:]
		if label == "" {
			ticks.CPU = -1
			aggregate = ticks
			haveAggregate = true
			continue
		}
		cpu, err := strconv.Atoi(label)
		if err != nil {
			continue
		}
		ticks.CPU = cpu
		cores = append(cores, ticks)
	}
	if err := scanner.Err(); err != nil {
		return CoreTicks{}, nil, fmt.Errorf("reading %s: %w", ProcStatPath, err)
	}
	if !haveAggregate && len(cores) == 0 {
		return CoreTicks{}, nil, ErrNoTickCounters
	}
	return aggregate, cores, nil
}

// parseTickFields folds the positional counters into a CoreTicks. The
// scan stops at the first non-numeric field; fewer than four parsed
// values is a failure.
func parseTickFields(fields []string) (CoreTicks, bool) {
	var values [8]uint64
	parsed := 0
	for parsed < len(values) && parsed < len(fields) {
		value, err := strconv.ParseUint(fields[parsed], 10, 64)
		if err != nil {
			break
		}
		values[parsed] = value
		parsed++
	}
	if parsed < 4 {
		return CoreTicks{}, false
	}

	// 0=user 1=nice 2=system 3=idle 4=iowait 5=irq 6=softirq 7=steal.
	// Unparsed positions are zero.
	idle := values[3] + values[4]
	busy := values[0] + values[1] + values[2] + values[5] + values[6] + values[7]
	return CoreTicks{Total: idle + busy, Idle: idle}, true
}

// UtilizationPercent computes busy percentage between two readings of
// the same CPU. The result is always within [0, 100]: when the later
// total is not strictly greater than the earlier one the delta is zero,
// and an idle delta larger than the total delta (counter reset) is
// clamped.
func UtilizationPercent(previous, current CoreTicks) float64 {
	if current.Total <= previous.Total {
		return 0
	}
	totalDelta := current.Total - previous.Total

	var idleDelta uint64
	if current.Idle > previous.Idle {
		idleDelta = current.Idle - previous.Idle
	}
	if idleDelta >= totalDelta {
		return 0
	}
	return float64(totalDelta-idleDelta) / float64(totalDelta) * 100
}

// SampleUtilization pairs two per-core readings by CPU number and
// returns one percentage per entry of current. A CPU that has no
// earlier reading (it just came online) reports 0.
func SampleUtilization(previous, current []CoreTicks) []float64 {
	earlier := make(map[int]CoreTicks, len(previous))
	for _, ticks := range previous {
		earlier[ticks.CPU] = ticks
	}

	percentages := make([]float64, len(current))
	for i, ticks := range current {
		before, ok := earlier[ticks.CPU]
		if !ok {
			continue
		}
		percentages[i] = UtilizationPercent(before, ticks)
	}
	return percentages
}
