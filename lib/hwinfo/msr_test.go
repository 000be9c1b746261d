// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"errors"
	"maps"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/coreburn/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// readAll reads register on cpu n times, failing the test on error.
func readAll(t *testing.T, msr MSRReader, cpu int, register uint32, n int) []uint64 {
	t.Helper()
	values := make([]uint64, n)
	for i := range values {
		value, err := msr.ReadMSR(cpu, register)
		if err != nil {
			t.Fatalf("read %d of cpu %d register %#x: %v", i, cpu, register, err)
		}
		values[i] = value
	}
	return values
}

// wattsNear fails unless got is present and within 1e-9 of want.
func wattsNear(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s missing, want %v", name, want)
	}
	if math.Abs(*got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, *got, want)
	}
}

func TestScriptedMSR(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(0, MSRAPERF, 10, 20)

	if got := readAll(t, msr, 0, MSRAPERF, 3); !slices.Equal(got, []uint64{10, 20, 20}) {
		t.Errorf("reads = %v, want [10 20 20]", got)
	}
	if _, err := msr.ReadMSR(1, MSRAPERF); !errors.Is(err, ErrMSRUnavailable) {
		t.Errorf("unscripted read error = %v, want ErrMSRUnavailable", err)
	}
	if got := msr.Reads(); got != 4 {
		t.Errorf("Reads() = %d, want 4", got)
	}
}

func TestPreciseFrequency(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	// cpu 0 runs at 1.5x base, cpu 2 at 0.8x base.
	msr.Script(0, MSRAPERF, 1_000_000, 2_500_000)
	msr.Script(0, MSRMPERF, 5_000_000, 6_000_000)
	msr.Script(2, MSRAPERF, 0, 800_000)
	msr.Script(2, MSRMPERF, 0, 1_000_000)

	sampler := NewPreciseFrequency(msr, 2_000_000)
	if err := sampler.Begin([]int{0, 2}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got, err := sampler.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if want := map[int]uint64{0: 3_000_000, 2: 1_600_000}; !maps.Equal(got, want) {
		t.Errorf("End = %v, want %v", got, want)
	}
}

func TestPreciseFrequencyCounterWrap(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(0, MSRAPERF, math.MaxUint64-499, 1_000)
	msr.Script(0, MSRMPERF, math.MaxUint64-999, 2_000)

	sampler := NewPreciseFrequency(msr, 2_400_000)
	if err := sampler.Begin([]int{0}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got, err := sampler.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if got[0] != 1_200_000 {
		t.Errorf("cpu 0 = %d kHz, want 1200000", got[0])
	}
}

func TestPreciseFrequencyStalledReference(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(1, MSRAPERF, 5, 5)
	msr.Script(1, MSRMPERF, 9, 9)

	sampler := NewPreciseFrequency(msr, 2_000_000)
	if err := sampler.Begin([]int{1}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got, err := sampler.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("End = %v, want no readings", got)
	}
}

func TestPreciseFrequencyUnavailable(t *testing.T) {
	t.Parallel()

	sampler := NewPreciseFrequency(NewScriptedMSR(), 2_000_000)
	if err := sampler.Begin([]int{0}); !errors.Is(err, ErrMSRUnavailable) {
		t.Errorf("Begin error = %v, want ErrMSRUnavailable", err)
	}
	if _, err := sampler.End(); err == nil {
		t.Error("End succeeded without a successful Begin")
	}
}

func TestReadPreciseFrequency(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(0, MSRAPERF, 0, 3_000)
	msr.Script(0, MSRMPERF, 0, 1_000)

	fake := clock.Fake(epoch)
	done := make(chan uint64)
	go func() {
		kHz, err := ReadPreciseFrequency(msr, fake, 0, 1_000_000, 100*time.Millisecond)
		if err != nil {
			t.Errorf("ReadPreciseFrequency: %v", err)
		}
		done <- kHz
	}()
	fake.WaitForTimers(1)
	fake.Advance(100 * time.Millisecond)

	select {
	case kHz := <-done:
		if kHz != 3_000_000 {
			t.Errorf("ReadPreciseFrequency = %d kHz, want 3000000", kHz)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ReadPreciseFrequency did not return after the interval elapsed")
	}
}

func TestScaleByRatio(t *testing.T) {
	t.Parallel()

	half := uint64(math.MaxUint64 / 2)
	got, ok := ScaleByRatio(half, 3, 4)
	if !ok {
		t.Fatal("128-bit intermediate must not overflow")
	}
	if want := half/4*3 + (half%4)*3/4; got != want {
		t.Errorf("ScaleByRatio = %d, want %d", got, want)
	}
	if _, ok := ScaleByRatio(100, 1, 0); ok {
		t.Error("zero denominator accepted")
	}
	if _, ok := ScaleByRatio(math.MaxUint64, 4, 2); ok {
		t.Error("result above 64 bits accepted")
	}
}

func TestEnergyUnitJoules(t *testing.T) {
	t.Parallel()

	// 0xA0E03: power unit 3, energy unit 14, time unit 10.
	if got := EnergyUnitJoules(0xA0E03); math.Abs(got-1.0/16384) > 1e-15 {
		t.Errorf("EnergyUnitJoules(0xA0E03) = %v, want 1/16384", got)
	}
	if got := EnergyUnitJoules(0); math.Abs(got-1.0) > 1e-15 {
		t.Errorf("EnergyUnitJoules(0) = %v, want 1", got)
	}
}

func TestPowerMeter(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(0, MSRRAPLPowerUnit, 0xA0E03)
	// 1 J = 16384 counts at this unit.
	msr.Script(0, MSRPackageEnergy, 0, 16384*50)
	msr.Script(0, MSRPP0Energy, 1000, 1000+16384*30)

	fake := clock.Fake(epoch)
	meter, err := NewPowerMeter(msr, 0, fake)
	if err != nil {
		t.Fatalf("NewPowerMeter: %v", err)
	}
	if got := meter.Domains(); !slices.Equal(got, []PowerDomain{DomainPackage, DomainCore}) {
		t.Errorf("Domains() = %v", got)
	}

	fake.Advance(2 * time.Second)
	reading, err := meter.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	wattsNear(t, "package", reading.PackageWatts, 25)
	wattsNear(t, "core", reading.CoreWatts, 15)
	if reading.DRAMWatts != nil {
		t.Errorf("unimplemented DRAM domain reported %v W", *reading.DRAMWatts)
	}
}

func TestPowerMeterEnergyWrap(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(0, MSRRAPLPowerUnit, 0) // 1 J per count
	msr.Script(0, MSRPackageEnergy, math.MaxUint32-9, 30)

	fake := clock.Fake(epoch)
	meter, err := NewPowerMeter(msr, 0, fake)
	if err != nil {
		t.Fatalf("NewPowerMeter: %v", err)
	}
	fake.Advance(time.Second)
	reading, err := meter.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	wattsNear(t, "package", reading.PackageWatts, 40)
}

func TestPowerMeterUnavailable(t *testing.T) {
	t.Parallel()

	if _, err := NewPowerMeter(NewScriptedMSR(), 0, clock.Fake(epoch)); !errors.Is(err, ErrMSRUnavailable) {
		t.Errorf("error = %v, want ErrMSRUnavailable", err)
	}

	// The package counter is mandatory.
	msr := NewScriptedMSR()
	msr.Script(0, MSRRAPLPowerUnit, 0xA0E03)
	if _, err := NewPowerMeter(msr, 0, clock.Fake(epoch)); !errors.Is(err, ErrMSRUnavailable) {
		t.Errorf("error = %v, want ErrMSRUnavailable", err)
	}
}

func TestPowerMeterZeroElapsed(t *testing.T) {
	t.Parallel()

	msr := NewScriptedMSR()
	msr.Script(0, MSRRAPLPowerUnit, 0)
	msr.Script(0, MSRPackageEnergy, 1, 2)

	meter, err := NewPowerMeter(msr, 0, clock.Fake(epoch))
	if err != nil {
		t.Fatalf("NewPowerMeter: %v", err)
	}
	reading, err := meter.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if reading.PackageWatts != nil {
		t.Errorf("zero elapsed time reported %v W", *reading.PackageWatts)
	}
}
