// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"fmt"
	"log/slog"
	"sync"
)

// Pinner applies thread affinity.
type Pinner interface {
	// ThreadID returns the calling OS thread's kernel id.
	ThreadID() int
	// Pin restricts thread tid to cpus.
	Pin(tid int, cpus ...int) error
	// Affinity returns the CPUs thread tid may run on.
	Affinity(tid int) ([]int, error)
}

// Assignment is one worker's placement.
type Assignment struct {
	Index int `json:"index"`
	// Slot indexes the current topology.
	Slot int `json:"slot"`
	// CPU is the logical CPU id the slot resolves to.
	CPU int `json:"cpu"`
	// Pinned is false while a re-pin is pending or after pinning
	// failed.
	Pinned bool `json:"pinned"`
}

type entry struct {
	slot    int
	tid     int
	bound   bool
	pinned  bool
	pending bool
	// warned limits pin-failure logging to once per worker.
	warned bool
}

// Table maps workers to CPUs. It implements workload.Placement.
type Table struct {
	mu       sync.Mutex
	topology Topology
	entries  []entry
	pinner   Pinner
	logger   *slog.Logger
}

// NewTable assigns worker i to slot i % topology.Count().
func NewTable(topology Topology, workers int, pinner Pinner, logger *slog.Logger) (*Table, error) {
	if topology.Count() == 0 {
		return nil, ErrNoCPUs
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries := make([]entry, workers)
	for i := range entries {
		entries[i].slot = i % topology.Count()
	}
	return &Table{
		topology: topology,
		entries:  entries,
		pinner:   pinner,
		logger:   logger.With("component", "affinity"),
	}, nil
}

// Bind records the calling thread as worker index's thread and pins
// it. Pin failures are logged and leave the worker unpinned; only an
// unknown index is an error.
func (t *Table) Bind(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) {
		return fmt.Errorf("affinity: worker %d not in table of %d", index, len(t.entries))
	}
	current := &t.entries[index]
	current.tid = t.pinner.ThreadID()
	current.bound = true
	t.pinLocked(index)
	return nil
}

// Refresh retries a pending re-pin from the worker's own thread.
func (t *Table) Refresh(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) || !t.entries[index].pending {
		return
	}
	t.pinLocked(index)
}

// CPU returns the CPU id assigned to worker index, or -1.
func (t *Table) CPU(index int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) {
		return -1
	}
	return t.topology.At(t.entries[index].slot)
}

// Topology returns the topology the table was last reassigned to.
func (t *Table) Topology() Topology {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.topology
}

// Assignments returns every worker's placement.
func (t *Table) Assignments() []Assignment {
	t.mu.Lock()
	defer t.mu.Unlock()
	assignments := make([]Assignment, len(t.entries))
	for i, current := range t.entries {
		assignments[i] = Assignment{
			Index:  i,
			Slot:   current.slot,
			CPU:    t.topology.At(current.slot),
			Pinned: current.pinned,
		}
	}
	return assignments
}

// Reassign switches the table to topology. Workers whose slot is out
// of range move to index % count; workers whose resolved CPU changed
// are re-pinned by thread id. Returns the number of workers moved to
// a new CPU.
func (t *Table) Reassign(topology Topology) (int, error) {
	if topology.Count() == 0 {
		return 0, ErrNoCPUs
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	previous := t.topology
	t.topology = topology
	moved := 0
	for index := range t.entries {
		current := &t.entries[index]
		oldCPU := previous.At(current.slot)
		if current.slot >= topology.Count() {
			current.slot = index % topology.Count()
		}
		if topology.At(current.slot) == oldCPU {
			continue
		}
		moved++
		if current.bound {
			t.pinLocked(index)
		}
	}
	return moved, nil
}

// pinLocked pins worker index to its current CPU. A failure marks the
// pin pending so the worker retries at its next period boundary.
func (t *Table) pinLocked(index int) {
	current := &t.entries[index]
	cpu := t.topology.At(current.slot)
	if err := t.pinner.Pin(current.tid, cpu); err != nil {
		current.pinned = false
		current.pending = true
		if !current.warned {
			current.warned = true
			t.logger.Warn("pinning worker failed, running unpinned until retried",
				"worker", index, "cpu", cpu, "tid", current.tid, "error", err)
		}
		return
	}
	current.pinned = true
	current.pending = false
}
