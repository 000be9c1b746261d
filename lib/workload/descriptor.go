// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/coreburn/lib/hwinfo"
)

// Descriptor holds one worker's identity and counters. The counters
// are written only by the owning worker; everyone else reads them
// with atomic loads and accepts that a reading may be one unit stale.
type Descriptor struct {
	Index       int
	Kind        Kind
	Utilization int

	operations atomic.Uint64
	busyNanos  atomic.Int64
	sleepNanos atomic.Int64
}

// Operations returns the cumulative unit count.
func (d *Descriptor) Operations() uint64 { return d.operations.Load() }

// Busy returns the cumulative time spent executing units.
func (d *Descriptor) Busy() time.Duration { return time.Duration(d.busyNanos.Load()) }

// Slept returns the cumulative time spent in the idle phase.
func (d *Descriptor) Slept() time.Duration { return time.Duration(d.sleepNanos.Load()) }

// OperationsSince returns the units completed since an earlier reading
// of Operations, correct across counter wraparound.
func (d *Descriptor) OperationsSince(previous uint64) uint64 {
	return hwinfo.CounterDelta(previous, d.Operations(), hwinfo.ClockCounterBits)
}

// Total is the final accounting for one worker.
type Total struct {
	Index      int           `json:"index"`
	CPU        int           `json:"cpu"`
	Operations uint64        `json:"operations"`
	Busy       time.Duration `json:"busy_ns"`
	Slept      time.Duration `json:"slept_ns"`
}
