// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// cpuSetSize is the number of CPUs representable in unix.CPUSet.
const cpuSetSize = 1024

// SchedSource reads the calling thread's affinity mask. The monitor
// calls it from a thread it has locked and never pinned, which
// inherits the process mask.
type SchedSource struct{}

// Allowed implements Source.
func (SchedSource) Allowed() (Topology, error) {
	cpus, err := threadAffinity(0)
	if err != nil {
		return Topology{}, err
	}
	if len(cpus) == 0 {
		return Topology{}, ErrNoCPUs
	}
	return NewTopology(cpus), nil
}

// threadAffinity reads the mask of thread tid, 0 meaning the caller.
func threadAffinity(tid int) ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(tid, &set); err != nil {
		return nil, fmt.Errorf("sched_getaffinity(tid %d): %w", tid, err)
	}
	cpus := make([]int, 0, set.Count())
	for cpu := 0; cpu < cpuSetSize && len(cpus) < cap(cpus); cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}

// SchedPinner pins threads with sched_setaffinity.
type SchedPinner struct{}

// ThreadID returns the calling thread's kernel id.
func (SchedPinner) ThreadID() int { return unix.Gettid() }

// Pin restricts thread tid to cpus.
func (SchedPinner) Pin(tid int, cpus ...int) error {
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(tid, &set); err != nil {
		return fmt.Errorf("sched_setaffinity(tid %d, cpus %v): %w", tid, cpus, err)
	}
	return nil
}

// Affinity returns the CPUs thread tid may run on.
func (SchedPinner) Affinity(tid int) ([]int, error) { return threadAffinity(tid) }
