// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/bureau-foundation/coreburn/lib/clock"
)

// PreciseFrequency measures effective core frequency from the
// APERF/MPERF counter pair. MPERF increments at the fixed reference
// (base) rate and APERF at the actual core clock while the core is in
// C0, so over an interval
//
//	freq = base * ΔAPERF / ΔMPERF
//
// Begin records the starting counters for a set of CPUs; End reads
// them again and returns the frequency per CPU.
type PreciseFrequency struct {
	msr     MSRReader
	baseKHz uint64
	start   map[int]clockCounters
}

type clockCounters struct {
	aperf uint64
	mperf uint64
}

// NewPreciseFrequency returns a sampler scaling counter ratios by
// baseKHz.
func NewPreciseFrequency(msr MSRReader, baseKHz uint64) *PreciseFrequency {
	return &PreciseFrequency{msr: msr, baseKHz: baseKHz}
}

// BaseKHz returns the reference frequency the ratio is scaled by.
func (p *PreciseFrequency) BaseKHz() uint64 { return p.baseKHz }

// Begin records the starting counters. Any read failure aborts the
// whole sample so the caller can fall back to cpufreq.
func (p *PreciseFrequency) Begin(cpus []int) error {
	start := make(map[int]clockCounters, len(cpus))
	for _, cpu := range cpus {
		counters, err := p.read(cpu)
		if err != nil {
			return err
		}
		start[cpu] = counters
	}
	p.start = start
	return nil
}

// End reads the counters again and returns kHz per CPU for every CPU
// passed to the preceding Begin. CPUs whose reference counter did not
// advance are omitted.
func (p *PreciseFrequency) End() (map[int]uint64, error) {
	if p.start == nil {
		return nil, fmt.Errorf("hwinfo: precise frequency End without Begin")
	}
	result := make(map[int]uint64, len(p.start))
	for cpu, before := range p.start {
		after, err := p.read(cpu)
		if err != nil {
			p.start = nil
			return nil, err
		}
		deltaActual := CounterDelta(before.aperf, after.aperf, ClockCounterBits)
		deltaReference := CounterDelta(before.mperf, after.mperf, ClockCounterBits)
		if kHz, ok := ScaleByRatio(p.baseKHz, deltaActual, deltaReference); ok {
			result[cpu] = kHz
		}
	}
	p.start = nil
	return result, nil
}

func (p *PreciseFrequency) read(cpu int) (clockCounters, error) {
	aperf, err := p.msr.ReadMSR(cpu, MSRAPERF)
	if err != nil {
		return clockCounters{}, err
	}
	mperf, err := p.msr.ReadMSR(cpu, MSRMPERF)
	if err != nil {
		return clockCounters{}, err
	}
	return clockCounters{aperf: aperf, mperf: mperf}, nil
}

// ReadPreciseFrequency samples one CPU across interval and returns its
// effective frequency in kHz.
func ReadPreciseFrequency(msr MSRReader, clk clock.Clock, cpu int, baseKHz uint64, interval time.Duration) (uint64, error) {
	sampler := NewPreciseFrequency(msr, baseKHz)
	if err := sampler.Begin([]int{cpu}); err != nil {
		return 0, err
	}
	clk.Sleep(interval)
	result, err := sampler.End()
	if err != nil {
		return 0, err
	}
	kHz, ok := result[cpu]
	if !ok {
		return 0, fmt.Errorf("hwinfo: reference counter on cpu %d did not advance", cpu)
	}
	return kHz, nil
}

// ScaleByRatio returns base*numerator/denominator using 128-bit
// intermediate precision. The boolean is false when denominator is 0
// or the result does not fit in 64 bits.
func ScaleByRatio(base, numerator, denominator uint64) (uint64, bool) {
	if denominator == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(base, numerator)
	if hi >= denominator {
		return 0, false
	}
	quotient, _ := bits.Div64(hi, lo, denominator)
	return quotient, true
}
