// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/coreburn/lib/clock"
)

// PowerDomain is one RAPL energy accounting domain.
type PowerDomain int

const (
	DomainPackage PowerDomain = iota
	DomainCore
	DomainDRAM
)

func (d PowerDomain) String() string {
	switch d {
	case DomainPackage:
		return "package"
	case DomainCore:
		return "core"
	case DomainDRAM:
		return "dram"
	default:
		return "unknown"
	}
}

func (d PowerDomain) register() uint32 {
	switch d {
	case DomainCore:
		return MSRPP0Energy
	case DomainDRAM:
		return MSRDRAMEnergy
	default:
		return MSRPackageEnergy
	}
}

// PowerReading is the average power per domain since the previous
// sample. Domains the processor does not implement are nil.
type PowerReading struct {
	PackageWatts *float64 `json:"package_w,omitempty"`
	CoreWatts    *float64 `json:"core_w,omitempty"`
	DRAMWatts    *float64 `json:"dram_w,omitempty"`
}

// PowerMeter derives watts from the RAPL energy status registers of
// one package. The energy unit is read once at construction.
type PowerMeter struct {
	msr   MSRReader
	cpu   int
	clock clock.Clock

	// joulesPerCount is 1/2^ESU, ESU being bits 12:8 of
	// MSR_RAPL_POWER_UNIT.
	joulesPerCount float64

	domains  []PowerDomain
	previous map[PowerDomain]uint64
	lastTime time.Time
}

// NewPowerMeter reads the energy unit and the starting counters on cpu.
// Domains whose counter cannot be read are left out of every reading.
// Fails when the unit register or the package counter is unreadable.
func NewPowerMeter(msr MSRReader, cpu int, clk clock.Clock) (*PowerMeter, error) {
	unit, err := msr.ReadMSR(cpu, MSRRAPLPowerUnit)
	if err != nil {
		return nil, fmt.Errorf("reading RAPL power unit: %w", err)
	}
	meter := &PowerMeter{
		msr:            msr,
		cpu:            cpu,
		clock:          clk,
		joulesPerCount: EnergyUnitJoules(unit),
		previous:       make(map[PowerDomain]uint64),
	}
	for _, domain := range []PowerDomain{DomainPackage, DomainCore, DomainDRAM} {
		raw, err := msr.ReadMSR(cpu, domain.register())
		if err != nil {
			if domain == DomainPackage {
				return nil, fmt.Errorf("reading package energy counter: %w", err)
			}
			continue
		}
		meter.domains = append(meter.domains, domain)
		meter.previous[domain] = raw
	}
	meter.lastTime = clk.Now()
	return meter, nil
}

// EnergyUnitJoules decodes the energy status unit from a raw
// MSR_RAPL_POWER_UNIT value.
func EnergyUnitJoules(raw uint64) float64 {
	esu := (raw >> 8) & 0x1f
	return 1.0 / float64(uint64(1)<<esu)
}

// Domains returns the domains this meter reports.
func (m *PowerMeter) Domains() []PowerDomain { return m.domains }

// Sample returns average watts since the previous Sample (or since
// construction). A zero elapsed interval yields an empty reading.
func (m *PowerMeter) Sample() (PowerReading, error) {
	now := m.clock.Now()
	elapsed := now.Sub(m.lastTime).Seconds()

	current := make(map[PowerDomain]uint64, len(m.domains))
	for _, domain := range m.domains {
		raw, err := m.msr.ReadMSR(m.cpu, domain.register())
		if err != nil {
			return PowerReading{}, fmt.Errorf("reading %s energy counter: %w", domain, err)
		}
		current[domain] = raw
	}

	var reading PowerReading
	if elapsed > 0 {
		for _, domain := range m.domains {
			counts := CounterDelta(m.previous[domain], current[domain], EnergyCounterBits)
			watts := float64(counts) * m.joulesPerCount / elapsed
			switch domain {
			case DomainPackage:
				reading.PackageWatts = &watts
			case DomainCore:
				reading.CoreWatts = &watts
			case DomainDRAM:
				reading.DRAMWatts = &watts
			}
		}
	}
	m.previous = current
	m.lastTime = now
	return reading, nil
}
