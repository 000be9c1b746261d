// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dcl

import (
	"fmt"
	"math"
)

// Histogram defaults: 200 MHz buckets covering 0 to 8 GHz.
const (
	DefaultBucketWidthKHz = 200_000
	DefaultBucketCount    = 40
)

// Histogram counts frequency samples in fixed-width buckets. Samples
// beyond the last bucket land in it; negative samples land in the
// first. It is not safe for concurrent use.
type Histogram struct {
	widthKHz float64
	counts   []uint64
	samples  uint64
	minKHz   float64
	maxKHz   float64
}

// NewHistogram returns a histogram of count buckets, each widthKHz
// wide.
func NewHistogram(widthKHz uint64, count int) (*Histogram, error) {
	if widthKHz == 0 {
		return nil, fmt.Errorf("dcl: histogram bucket width must be positive")
	}
	if count <= 0 {
		return nil, fmt.Errorf("dcl: histogram needs at least one bucket, got %d", count)
	}
	return &Histogram{
		widthKHz: float64(widthKHz),
		counts:   make([]uint64, count),
	}, nil
}

// NewDefaultHistogram returns a histogram with the default geometry.
func NewDefaultHistogram() *Histogram {
	histogram, _ := NewHistogram(DefaultBucketWidthKHz, DefaultBucketCount)
	return histogram
}

// AddSample records one frequency reading. NaN is ignored.
func (h *Histogram) AddSample(kHz float64) {
	if math.IsNaN(kHz) {
		return
	}
	bucket := 0
	if kHz > 0 {
		bucket = int(min(math.Floor(kHz/h.widthKHz), float64(len(h.counts)-1)))
	}
	h.counts[bucket]++
	if h.samples == 0 || kHz < h.minKHz {
		h.minKHz = kHz
	}
	if h.samples == 0 || kHz > h.maxKHz {
		h.maxKHz = kHz
	}
	h.samples++
}

// Samples returns the number of samples recorded.
func (h *Histogram) Samples() uint64 { return h.samples }

// Bucket is one non-empty residency band.
type Bucket struct {
	LowKHz  uint64  `json:"low_khz"`
	HighKHz uint64  `json:"high_khz"`
	Samples uint64  `json:"samples"`
	Percent float64 `json:"percent"`
}

// Residency is the summarized distribution.
type Residency struct {
	BucketWidthKHz uint64   `json:"bucket_width_khz"`
	Samples        uint64   `json:"samples"`
	MinKHz         float64  `json:"min_khz"`
	MaxKHz         float64  `json:"max_khz"`
	Buckets        []Bucket `json:"buckets"`
}

// Summarize returns the non-empty buckets in ascending order with
// their share of all samples.
func (h *Histogram) Summarize() Residency {
	width := uint64(h.widthKHz)
	residency := Residency{
		BucketWidthKHz: width,
		Samples:        h.samples,
		MinKHz:         h.minKHz,
		MaxKHz:         h.maxKHz,
	}
	for index, count := range h.counts {
		if count == 0 {
			continue
		}
		residency.Buckets = append(residency.Buckets, Bucket{
			LowKHz:  uint64(index) * width,
			HighKHz: uint64(index+1) * width,
			Samples: count,
			Percent: float64(count) / float64(h.samples) * 100,
		})
	}
	return residency
}
