// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"math"
	"math/rand/v2"
)

// unitIterations is the inner loop count of one work unit. One unit
// takes a few microseconds on current hardware, which bounds both the
// busy-budget overshoot and the stop latency.
const unitIterations = 1024

// Multiply-add constants for the float and vector kernels. The
// recurrence x = x*scale + addend converges to 1 and never leaves the
// normal float range.
const (
	vectorScale  float32 = 0.9999
	vectorAddend float32 = 0.0001
)

// Unit executes one work unit.
type Unit func()

// unitState is the per-worker working set. Each vector width gets its
// own buffer so a kernel always loads and stores full registers.
type unitState struct {
	integers [8]uint64
	scalar   float64
	sse      [4]float32
	avx      [8]float32
	avx2     [16]float32
	avx512   [16]float32
}

func newUnitState(seed uint64) *unitState {
	state := &unitState{scalar: 1 + float64(seed%97)/97}
	mixer := seed*0x9E3779B97F4A7C15 + 1
	for i := range state.integers {
		mixer ^= mixer >> 33
		mixer *= 0xFF51AFD7ED558CCD
		state.integers[i] = mixer | 1
	}
	fill := func(buffer []float32) {
		for i := range buffer {
			buffer[i] = 0.5 + float32((seed+uint64(i))%13)/26
		}
	}
	fill(state.sse[:])
	fill(state.avx[:])
	fill(state.avx2[:])
	fill(state.avx512[:])
	return state
}

func (s *unitState) integerUnit() {
	for range unitIterations / len(s.integers) {
		for i := range s.integers {
			value := s.integers[i]
			value ^= value << 13
			value ^= value >> 7
			value ^= value << 17
			s.integers[i] = value*0x2545F4914F6CDD1D + uint64(i)
		}
	}
}

func (s *unitState) floatUnit() {
	x := s.scalar
	for range unitIterations {
		x = x*0.99990001 + 0.0001
		x = math.Sqrt(x*x + 1e-9)
	}
	s.scalar = x
}

func (s *unitState) sseUnit()    { sseUnit(&s.sse, vectorAddend, vectorScale, unitIterations) }
func (s *unitState) avxUnit()    { avxUnit(&s.avx, vectorAddend, vectorScale, unitIterations) }
func (s *unitState) avx2Unit()   { avx2Unit(&s.avx2, vectorAddend, vectorScale, unitIterations) }
func (s *unitState) avx512Unit() { avx512Unit(&s.avx512, vectorAddend, vectorScale, unitIterations) }

// bindUnit resolves kind to the function the worker calls in its hot
// loop. seed decorrelates the state of different workers.
func bindUnit(kind Kind, ratio Ratio, seed uint64) Unit {
	state := newUnitState(seed)
	switch kind {
	case KindFloat:
		return state.floatUnit
	case KindSSE:
		return state.sseUnit
	case KindAVX:
		return state.avxUnit
	case KindAVX2:
		return state.avx2Unit
	case KindAVX512:
		return state.avx512Unit
	case KindMixed:
		return mixedUnit(state.integerUnit, state.floatUnit, state.avxUnit, ratio.Normalize(), seed)
	default:
		return state.integerUnit
	}
}

// mixedUnit draws one of the integer, float or vector units per call
// with probability proportional to its weight.
func mixedUnit(integer, float, vector Unit, ratio Ratio, seed uint64) Unit {
	random := rand.New(rand.NewPCG(seed, seed^0xC0FFEE))
	total := ratio.total()
	intCut := uint64(ratio.Int)
	floatCut := intCut + uint64(ratio.Float)
	return func() {
		pick := random.Uint64N(total)
		switch {
		case pick < intCut:
			integer()
		case pick < floatCut:
			float()
		default:
			vector()
		}
	}
}
