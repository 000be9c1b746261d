// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dcl

import (
	"github.com/bureau-foundation/coreburn/lib/workload"
)

// Tracker accumulates the per-interval measured frequency of one run:
// the residency histogram and the running mean that is validated
// against the table. It is not safe for concurrent use.
type Tracker struct {
	kind      workload.Kind
	entry     Entry
	histogram *Histogram
	sum       float64
	count     uint64
}

// NewTracker returns a tracker validating kind against entry. A nil
// histogram gets the default geometry.
func NewTracker(kind workload.Kind, entry Entry, histogram *Histogram) *Tracker {
	if histogram == nil {
		histogram = NewDefaultHistogram()
	}
	return &Tracker{kind: kind, entry: entry, histogram: histogram}
}

// AddSample records one interval's measured frequency.
func (t *Tracker) AddSample(kHz float64) {
	t.histogram.AddSample(kHz)
	t.sum += kHz
	t.count++
}

// MeanKHz returns the mean of all samples, or false before the first.
func (t *Tracker) MeanKHz() (float64, bool) {
	if t.count == 0 {
		return 0, false
	}
	return t.sum / float64(t.count), true
}

// Record validates the mean so far. The boolean is false when no
// sample has been recorded.
func (t *Tracker) Record() (Record, bool) {
	mean, ok := t.MeanKHz()
	if !ok {
		return Record{}, false
	}
	return Validate(t.kind, t.entry, mean), true
}

// Residency summarizes the histogram.
func (t *Tracker) Residency() Residency { return t.histogram.Summarize() }
