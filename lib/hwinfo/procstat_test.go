// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"errors"
	"math"
	"testing"
)

const sampleProcStat = `cpu  4705 356 584 3699 23 23 0 0 0 0
cpu0 1393 280 138 1861 11 11 0 0 0 0
cpu1 1201 20 188 1000 4 6 0 2 0 0
intr 114930548 113199788 3 0 5 263 0 4 [... lots more numbers ...]
ctxt 1990473
cpu7 9 9 9 9
`

func TestReadProcStat(t *testing.T) {
	t.Parallel()

	fs := memTree(t, map[string]string{ProcStatPath: sampleProcStat})
	aggregate, cores, err := ReadProcStat(fs)
	if err != nil {
		t.Fatalf("ReadProcStat: %v", err)
	}

	want := CoreTicks{CPU: -1, Total: 4705 + 356 + 584 + 3699 + 23 + 23, Idle: 3699 + 23}
	if aggregate != want {
		t.Errorf("aggregate = %+v, want %+v", aggregate, want)
	}
	if len(cores) != 2 {
		t.Fatalf("got %d cores, want 2: cpu lines after the cpu block must be ignored", len(cores))
	}
	if cores[0].CPU != 0 || cores[0].Idle != 1861+11 {
		t.Errorf("cores[0] = %+v", cores[0])
	}
	if cores[1].CPU != 1 || cores[1].Total != 1201+20+188+1000+4+6+2 {
		t.Errorf("cores[1] = %+v", cores[1])
	}
}

func TestReadProcStatMinimalFields(t *testing.T) {
	t.Parallel()

	fs := memTree(t, map[string]string{ProcStatPath: "cpu 10 0 5 85\ncpu0 10 0 5 85\n"})
	aggregate, cores, err := ReadProcStat(fs)
	if err != nil {
		t.Fatalf("ReadProcStat: %v", err)
	}
	if aggregate.Total != 100 || aggregate.Idle != 85 {
		t.Errorf("aggregate = %+v, want total 100 idle 85", aggregate)
	}
	if len(cores) != 1 {
		t.Errorf("got %d cores, want 1", len(cores))
	}
}

func TestReadProcStatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{name: "missing file"},
		{
			name:    "no cpu lines",
			files:   map[string]string{ProcStatPath: "intr 1 2 3\nctxt 5\n"},
			wantErr: ErrNoTickCounters,
		},
		{name: "too few fields", files: map[string]string{ProcStatPath: "cpu 1 2 3\n"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ReadProcStat(memTree(t, test.files))
			if err == nil {
				t.Fatal("ReadProcStat succeeded")
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Errorf("error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestUtilizationPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		prev CoreTicks
		cur  CoreTicks
		want float64
	}{
		{"half busy", CoreTicks{Total: 100, Idle: 50}, CoreTicks{Total: 200, Idle: 100}, 50},
		{"fully busy", CoreTicks{Total: 100, Idle: 50}, CoreTicks{Total: 200, Idle: 50}, 100},
		{"fully idle", CoreTicks{Total: 100, Idle: 50}, CoreTicks{Total: 200, Idle: 150}, 0},
		{"total unchanged", CoreTicks{Total: 100, Idle: 50}, CoreTicks{Total: 100, Idle: 50}, 0},
		{"total went backwards", CoreTicks{Total: 200, Idle: 50}, CoreTicks{Total: 100, Idle: 20}, 0},
		{"idle went backwards", CoreTicks{Total: 100, Idle: 50}, CoreTicks{Total: 200, Idle: 40}, 100},
		{"idle grew faster than total", CoreTicks{Total: 100, Idle: 50}, CoreTicks{Total: 110, Idle: 90}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UtilizationPercent(tt.prev, tt.cur); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("UtilizationPercent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUtilizationPercentAlwaysInRange(t *testing.T) {
	t.Parallel()

	values := []uint64{0, 1, 7, 100, 1 << 20, 1<<63 + 5, ^uint64(0)}
	for _, prevTotal := range values {
		for _, curTotal := range values {
			for _, prevIdle := range values {
				for _, curIdle := range values {
					got := UtilizationPercent(
						CoreTicks{Total: prevTotal, Idle: prevIdle},
						CoreTicks{Total: curTotal, Idle: curIdle},
					)
					if got < 0 || got > 100 {
						t.Fatalf("UtilizationPercent(%d/%d -> %d/%d) = %v, outside [0,100]",
							prevTotal, prevIdle, curTotal, curIdle, got)
					}
				}
			}
		}
	}
}

func TestSampleUtilizationPairsByCPU(t *testing.T) {
	t.Parallel()

	prev := []CoreTicks{{CPU: 0, Total: 100, Idle: 100}, {CPU: 2, Total: 100, Idle: 100}}
	cur := []CoreTicks{{CPU: 2, Total: 200, Idle: 100}, {CPU: 0, Total: 200, Idle: 150}, {CPU: 5, Total: 10, Idle: 0}}

	got := SampleUtilization(prev, cur)
	// The cpu without a previous sample reports 0.
	want := []float64{100, 50, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
