// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dcl

import (
	"math"
	"testing"

	"github.com/bureau-foundation/coreburn/lib/workload"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		kind workload.Kind
		want Class
	}{
		{workload.KindInt, ClassLow},
		{workload.KindFloat, ClassLow},
		{workload.KindSSE, ClassLow},
		{workload.KindAVX, ClassMedium},
		{workload.KindAVX2, ClassHigh},
		{workload.KindAVX512, ClassHigh},
		{workload.KindMixed, ClassMedium},
		{workload.Kind(42), ClassHigh},
	}
	for _, test := range tests {
		if got := Classify(test.kind); got != test.want {
			t.Errorf("Classify(%s) = %s, want %s", test.kind, got, test.want)
		}
	}
}

func TestClassifyIsStable(t *testing.T) {
	for range 100 {
		if Classify(workload.KindSSE) != ClassLow ||
			Classify(workload.KindAVX) != ClassMedium ||
			Classify(workload.KindAVX2) != ClassHigh ||
			Classify(workload.KindAVX512) != ClassHigh {
			t.Fatal("classification changed between calls")
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		expected      uint64
		measured      float64
		tolerance     float64
		wantDeviation float64
		wantVerdict   Verdict
	}{
		{"within tolerance", 2800, 2785, 3.0, 0.5357, Pass},
		{"far below", 2800, 831, 10.0, 70.3214, Fail},
		{"exactly at tolerance", 1024, 1088, 6.25, 6.25, Pass},
		{"above expected", 2000, 2300, 10.0, 15.0, Fail},
		{"exact", 3500000, 3500000, 0, 0, Pass},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			record := Validate(workload.KindAVX2, Entry{ExpectedKHz: test.expected, TolerancePercent: test.tolerance}, test.measured)
			if math.Abs(record.DeviationPercent-test.wantDeviation) > 0.001 {
				t.Errorf("deviation = %.4f, want %.4f", record.DeviationPercent, test.wantDeviation)
			}
			if record.Verdict != test.wantVerdict {
				t.Errorf("verdict = %s, want %s", record.Verdict, test.wantVerdict)
			}
			if record.Class != ClassHigh || record.Kind != workload.KindAVX2 {
				t.Errorf("record carries kind %s class %s", record.Kind, record.Class)
			}
		})
	}
}

func TestValidateZeroExpectedFails(t *testing.T) {
	record := Validate(workload.KindInt, Entry{TolerancePercent: 100}, 1000)
	if record.Verdict != Fail {
		t.Errorf("verdict = %s, want FAIL", record.Verdict)
	}
}

func TestVerdictText(t *testing.T) {
	for _, verdict := range []Verdict{Pass, Fail} {
		text, err := verdict.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var parsed Verdict
		if err := parsed.UnmarshalText(text); err != nil || parsed != verdict {
			t.Errorf("round trip of %s gave %s, %v", verdict, parsed, err)
		}
	}
	var verdict Verdict
	if err := verdict.UnmarshalText([]byte("MAYBE")); err == nil {
		t.Error("UnmarshalText accepted MAYBE")
	}
}
