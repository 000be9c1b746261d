// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dcl

import (
	"fmt"
	"math"
	"strings"

	"github.com/bureau-foundation/coreburn/lib/workload"
)

// Verdict is the outcome of one validation.
type Verdict int

const (
	Fail Verdict = iota
	Pass
)

func (v Verdict) String() string {
	if v == Pass {
		return "PASS"
	}
	return "FAIL"
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "PASS":
		*v = Pass
	case "FAIL":
		*v = Fail
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// Entry is the specified frequency of one workload kind.
type Entry struct {
	ExpectedKHz      uint64  `json:"expected_khz"`
	TolerancePercent float64 `json:"tolerance_percent"`
}

// Record is the result of validating one measurement.
type Record struct {
	Kind             workload.Kind `json:"kind"`
	Class            Class         `json:"class"`
	ExpectedKHz      uint64        `json:"expected_khz"`
	MeasuredKHz      float64       `json:"measured_khz"`
	DeviationPercent float64       `json:"deviation_percent"`
	TolerancePercent float64       `json:"tolerance_percent"`
	Verdict          Verdict       `json:"verdict"`
}

// Validate compares a measured frequency against entry. A zero expected
// frequency fails with a deviation of 100%; tables reject it on load.
func Validate(kind workload.Kind, entry Entry, measuredKHz float64) Record {
	record := Record{
		Kind:             kind,
		Class:            Classify(kind),
		ExpectedKHz:      entry.ExpectedKHz,
		MeasuredKHz:      measuredKHz,
		TolerancePercent: entry.TolerancePercent,
		Verdict:          Fail,
	}
	if entry.ExpectedKHz == 0 {
		record.DeviationPercent = 100
		return record
	}
	expected := float64(entry.ExpectedKHz)
	record.DeviationPercent = math.Abs(measuredKHz-expected) / expected * 100
	if record.DeviationPercent <= entry.TolerancePercent {
		record.Verdict = Pass
	}
	return record
}
