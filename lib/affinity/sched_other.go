// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package affinity

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned by the scheduler primitives off Linux.
var ErrUnsupported = errors.New("affinity: thread pinning requires Linux")

// SchedSource reports every CPU the Go runtime sees.
type SchedSource struct{}

// Allowed implements Source.
func (SchedSource) Allowed() (Topology, error) {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return NewTopology(cpus), nil
}

// SchedPinner cannot pin off Linux.
type SchedPinner struct{}

// ThreadID returns 0.
func (SchedPinner) ThreadID() int { return 0 }

// Pin fails with ErrUnsupported.
func (SchedPinner) Pin(int, ...int) error { return ErrUnsupported }

// Affinity fails with ErrUnsupported.
func (SchedPinner) Affinity(int) ([]int, error) { return nil, ErrUnsupported }
