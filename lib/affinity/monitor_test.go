// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/coreburn/lib/clock"
	"github.com/bureau-foundation/coreburn/lib/testutil"
)

// switchableSource returns whatever topology was set last.
type switchableSource struct {
	mu       sync.Mutex
	topology Topology
	err      error
}

func (s *switchableSource) set(topology Topology, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topology = topology
	s.err = err
}

func (s *switchableSource) Allowed() (Topology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topology, s.err
}

func TestMonitorPollShrink(t *testing.T) {
	pinner := newFakePinner()
	table, err := NewTable(sequentialTopology(8), 8, pinner, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	bindAll(t, table, 8)

	source := &switchableSource{topology: sequentialTopology(8)}
	monitor := NewMonitor(MonitorConfig{Table: table, Source: source})

	if monitor.Poll() {
		t.Error("unchanged set reported as a change")
	}

	source.set(sequentialTopology(3), nil)
	if !monitor.Poll() {
		t.Fatal("shrink not detected")
	}
	for _, assignment := range table.Assignments() {
		if assignment.Slot >= 3 {
			t.Errorf("worker %d slot %d not < 3 after the poll", assignment.Index, assignment.Slot)
		}
	}
	if monitor.Changes() != 1 || monitor.Polls() != 2 {
		t.Errorf("changes %d polls %d", monitor.Changes(), monitor.Polls())
	}
}

func TestMonitorPollErrors(t *testing.T) {
	table, err := NewTable(sequentialTopology(4), 4, newFakePinner(), nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	source := &switchableSource{err: errors.New("sched_getaffinity: EINVAL")}
	monitor := NewMonitor(MonitorConfig{Table: table, Source: source})

	if monitor.Poll() || monitor.Poll() {
		t.Error("read failures must not count as changes")
	}
	source.set(Topology{}, nil)
	if monitor.Poll() {
		t.Error("an empty set must not be applied")
	}
	if got := monitor.Failures(); got != 3 {
		t.Errorf("Failures() = %d, want 3", got)
	}
	if table.Topology().Count() != 4 {
		t.Error("table changed after failed polls")
	}
}

func TestMonitorRunPollsOnInterval(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	table, err := NewTable(sequentialTopology(4), 4, newFakePinner(), nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	bindAll(t, table, 4)
	source := &switchableSource{topology: sequentialTopology(4)}
	monitor := NewMonitor(MonitorConfig{Table: table, Source: source, Clock: fake})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()
	fake.WaitForTimers(1)

	source.set(sequentialTopology(2), nil)
	fake.Advance(DefaultPollInterval)
	deadline := time.Now().Add(5 * time.Second)
	for monitor.Changes() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("monitor did not poll after one interval")
		}
		time.Sleep(time.Millisecond)
	}
	for _, assignment := range table.Assignments() {
		if assignment.Slot >= 2 {
			t.Errorf("worker %d slot %d", assignment.Index, assignment.Slot)
		}
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "Run did not return after cancel")
}
