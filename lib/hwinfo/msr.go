// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"errors"
	"fmt"
	"sync"
)

// Model-specific register addresses.
const (
	MSRMPERF         uint32 = 0xE7
	MSRAPERF         uint32 = 0xE8
	MSRRAPLPowerUnit uint32 = 0x606
	MSRPackageEnergy uint32 = 0x611
	MSRDRAMEnergy    uint32 = 0x619
	MSRPP0Energy     uint32 = 0x639
)

// Register widths for wraparound arithmetic.
const (
	ClockCounterBits  uint = 64
	EnergyCounterBits uint = 32
)

// ErrMSRUnavailable is returned when register access is not possible:
// no msr driver, no device node, or insufficient privilege.
var ErrMSRUnavailable = errors.New("hwinfo: model-specific registers unavailable")

// MSRReader reads one model-specific register on one logical CPU.
type MSRReader interface {
	ReadMSR(cpu int, register uint32) (uint64, error)
}

// ScriptedMSR replays register values. Each (cpu, register) pair holds
// a queue; every read pops the head until one value remains, which is
// then returned on every further read. Unscripted pairs fail with
// [ErrMSRUnavailable].
type ScriptedMSR struct {
	mu     sync.Mutex
	values map[msrKey][]uint64
	reads  int
}

type msrKey struct {
	cpu      int
	register uint32
}

// NewScriptedMSR returns an empty script.
func NewScriptedMSR() *ScriptedMSR {
	return &ScriptedMSR{values: make(map[msrKey][]uint64)}
}

// Script appends values to the queue for (cpu, register).
func (s *ScriptedMSR) Script(cpu int, register uint32, values ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := msrKey{cpu, register}
	s.values[key] = append(s.values[key], values...)
}

// ReadMSR implements [MSRReader].
func (s *ScriptedMSR) ReadMSR(cpu int, register uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	key := msrKey{cpu, register}
	queue := s.values[key]
	if len(queue) == 0 {
		return 0, fmt.Errorf("cpu %d register %#x: %w", cpu, register, ErrMSRUnavailable)
	}
	value := queue[0]
	if len(queue) > 1 {
		s.values[key] = queue[1:]
	}
	return value, nil
}

// Reads returns the number of ReadMSR calls made so far.
func (s *ScriptedMSR) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
