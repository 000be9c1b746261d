// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"errors"
	"sync"
	"testing"
)

// fakePinner records the last pin per thread. Threads listed in
// refuse fail every pin; CPUs listed in refuseCPU fail single-CPU
// pins. A thread never pinned reports initial as its mask.
type fakePinner struct {
	mu        sync.Mutex
	nextTID   int
	pins      map[int][]int
	refuse    map[int]bool
	refuseCPU map[int]bool
	initial   []int
	// affinityErr fails every Affinity call.
	affinityErr error
	calls       int
}

func newFakePinner() *fakePinner {
	return &fakePinner{
		nextTID:   100,
		pins:      make(map[int][]int),
		refuse:    make(map[int]bool),
		refuseCPU: make(map[int]bool),
		initial:   []int{0, 1, 2, 3, 4, 5, 6, 7},
	}
}

func (p *fakePinner) ThreadID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextTID++
	return p.nextTID
}

func (p *fakePinner) Pin(tid int, cpus ...int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.refuse[tid] || (len(cpus) == 1 && p.refuseCPU[cpus[0]]) {
		return errors.New("operation not permitted")
	}
	p.pins[tid] = append([]int(nil), cpus...)
	return nil
}

func (p *fakePinner) Affinity(tid int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.affinityErr != nil {
		return nil, p.affinityErr
	}
	if cpus, ok := p.pins[tid]; ok {
		return append([]int(nil), cpus...), nil
	}
	return append([]int(nil), p.initial...), nil
}

func (p *fakePinner) pinnedTo(tid int) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[tid]
}

func sequentialTopology(count int) Topology {
	cpus := make([]int, count)
	for i := range cpus {
		cpus[i] = i
	}
	return NewTopology(cpus)
}

func bindAll(t *testing.T, table *Table, workers int) {
	t.Helper()
	for index := range workers {
		if err := table.Bind(index); err != nil {
			t.Fatalf("Bind(%d): %v", index, err)
		}
	}
}

func TestNewTopology(t *testing.T) {
	topology := NewTopology([]int{5, 1, 3, 1})
	if got := topology.CPUs(); len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Errorf("CPUs() = %v, want [1 3 5]", got)
	}
	if !topology.Equal(NewTopology([]int{3, 5, 1})) {
		t.Error("Equal should ignore input order")
	}
	if topology.Equal(NewTopology([]int{1, 3})) {
		t.Error("different sets compared equal")
	}
}

func TestNewTableAssignsRoundRobin(t *testing.T) {
	table, err := NewTable(NewTopology([]int{2, 4, 6}), 5, newFakePinner(), nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	want := []int{2, 4, 6, 2, 4}
	for index, cpu := range want {
		if got := table.CPU(index); got != cpu {
			t.Errorf("CPU(%d) = %d, want %d", index, got, cpu)
		}
	}
	if got := table.CPU(9); got != -1 {
		t.Errorf("CPU of unknown worker = %d", got)
	}

	if _, err := NewTable(Topology{}, 1, newFakePinner(), nil); !errors.Is(err, ErrNoCPUs) {
		t.Errorf("empty topology: %v", err)
	}
}

func TestBindPinsThread(t *testing.T) {
	pinner := newFakePinner()
	table, err := NewTable(sequentialTopology(4), 2, pinner, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	bindAll(t, table, 2)

	if got := pinner.pinnedTo(101); len(got) != 1 || got[0] != 0 {
		t.Errorf("worker 0 thread pinned to %v", got)
	}
	if got := pinner.pinnedTo(102); len(got) != 1 || got[0] != 1 {
		t.Errorf("worker 1 thread pinned to %v", got)
	}
	for _, assignment := range table.Assignments() {
		if !assignment.Pinned {
			t.Errorf("worker %d not marked pinned", assignment.Index)
		}
	}
	if err := table.Bind(2); err == nil {
		t.Error("Bind of an unknown worker should fail")
	}
}

func TestReassignShrinkKeepsEveryWorkerInRange(t *testing.T) {
	for _, shrink := range []struct{ from, to, workers int }{
		{8, 4, 8},
		{8, 1, 8},
		{16, 5, 16},
		{4, 3, 10},
	} {
		pinner := newFakePinner()
		table, err := NewTable(sequentialTopology(shrink.from), shrink.workers, pinner, nil)
		if err != nil {
			t.Fatalf("NewTable: %v", err)
		}
		bindAll(t, table, shrink.workers)

		if _, err := table.Reassign(sequentialTopology(shrink.to)); err != nil {
			t.Fatalf("Reassign: %v", err)
		}
		for _, assignment := range table.Assignments() {
			if assignment.Slot >= shrink.to {
				t.Errorf("%d->%d: worker %d slot %d out of range", shrink.from, shrink.to, assignment.Index, assignment.Slot)
			}
			tid := 101 + assignment.Index
			if got := pinner.pinnedTo(tid); len(got) != 1 || got[0] != assignment.CPU {
				t.Errorf("%d->%d: worker %d assigned %d but thread pinned to %v",
					shrink.from, shrink.to, assignment.Index, assignment.CPU, got)
			}
		}
	}
}

func TestReassignMovesOnlyOutOfRangeWorkers(t *testing.T) {
	table, err := NewTable(sequentialTopology(8), 8, newFakePinner(), nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	bindAll(t, table, 8)

	moved, err := table.Reassign(sequentialTopology(3))
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if moved != 5 {
		t.Errorf("moved %d workers, want 5", moved)
	}
	want := []int{0, 1, 2, 0, 1, 2, 0, 1}
	for index, cpu := range want {
		if got := table.CPU(index); got != cpu {
			t.Errorf("CPU(%d) = %d, want %d", index, got, cpu)
		}
	}
}

func TestReassignSameCountDifferentCPUs(t *testing.T) {
	pinner := newFakePinner()
	table, err := NewTable(NewTopology([]int{0, 1}), 2, pinner, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	bindAll(t, table, 2)

	moved, err := table.Reassign(NewTopology([]int{6, 7}))
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if moved != 2 {
		t.Errorf("moved %d, want 2", moved)
	}
	if got := pinner.pinnedTo(101); len(got) != 1 || got[0] != 6 {
		t.Errorf("worker 0 pinned to %v, want [6]", got)
	}
}

func TestReassignRejectsEmpty(t *testing.T) {
	table, err := NewTable(sequentialTopology(2), 2, newFakePinner(), nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := table.Reassign(Topology{}); !errors.Is(err, ErrNoCPUs) {
		t.Errorf("Reassign(empty) = %v", err)
	}
	if table.Topology().Count() != 2 {
		t.Error("failed reassignment must keep the old topology")
	}
}

func TestFailedRepinRetriedAtRefresh(t *testing.T) {
	pinner := newFakePinner()
	table, err := NewTable(sequentialTopology(4), 4, pinner, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	bindAll(t, table, 4)

	// Worker 3 (tid 104) must move; its first re-pin fails.
	pinner.mu.Lock()
	pinner.refuse[104] = true
	pinner.mu.Unlock()
	if _, err := table.Reassign(sequentialTopology(2)); err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if table.Assignments()[3].Pinned {
		t.Fatal("worker 3 should be pending after a failed re-pin")
	}
	if got := table.CPU(3); got != 1 {
		t.Errorf("CPU(3) = %d, want 1 even while the pin is pending", got)
	}

	pinner.mu.Lock()
	delete(pinner.refuse, 104)
	pinner.mu.Unlock()
	table.Refresh(3)

	if !table.Assignments()[3].Pinned {
		t.Error("Refresh should have applied the pending pin")
	}
	if got := pinner.pinnedTo(104); len(got) != 1 || got[0] != 1 {
		t.Errorf("worker 3 pinned to %v, want [1]", got)
	}

	// With nothing pending Refresh does not touch the pinner.
	pinner.mu.Lock()
	before := pinner.calls
	pinner.mu.Unlock()
	table.Refresh(0)
	table.Refresh(99)
	pinner.mu.Lock()
	after := pinner.calls
	pinner.mu.Unlock()
	if after != before {
		t.Errorf("Refresh without a pending pin made %d pin calls", after-before)
	}
}
