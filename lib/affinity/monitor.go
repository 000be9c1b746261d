// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/coreburn/lib/clock"
)

// DefaultPollInterval is how often the allowed set is re-read.
const DefaultPollInterval = time.Second

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	Table    *Table
	Source   Source
	Clock    clock.Clock
	Interval time.Duration
	Logger   *slog.Logger
}

// Monitor adapts the table to changes of the allowed CPU set.
type Monitor struct {
	table    *Table
	source   Source
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	polls    atomic.Uint64
	changes  atomic.Uint64
	failures atomic.Uint64
	// readFailed limits source errors to one warning per streak.
	readFailed bool
}

// NewMonitor applies defaults to config.
func NewMonitor(config MonitorConfig) *Monitor {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		table:    config.Table,
		source:   config.Source,
		clock:    config.Clock,
		interval: config.Interval,
		logger:   config.Logger.With("component", "affinity-monitor"),
	}
}

// Poll reads the allowed set once and reassigns the table if it
// changed. It reports whether a change was applied. Poll is not safe
// for concurrent use with itself.
func (m *Monitor) Poll() bool {
	m.polls.Add(1)
	topology, err := m.source.Allowed()
	if err != nil {
		m.failures.Add(1)
		if !m.readFailed {
			m.readFailed = true
			m.logger.Warn("reading allowed CPU set failed, keeping current assignment", "error", err)
		}
		return false
	}
	m.readFailed = false

	previous := m.table.Topology()
	if topology.Equal(previous) {
		return false
	}
	moved, err := m.table.Reassign(topology)
	if err != nil {
		m.failures.Add(1)
		m.logger.Warn("allowed CPU set is empty, keeping current assignment", "error", err)
		return false
	}
	m.changes.Add(1)
	m.logger.Info("allowed CPU set changed",
		"previous_count", previous.Count(),
		"count", topology.Count(),
		"cpus", topology.CPUs(),
		"workers_moved", moved,
	)
	return true
}

// Run polls until ctx is done. The goroutine stays locked to one OS
// thread that is never pinned, so the thread's affinity mask is the
// process mask.
func (m *Monitor) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Polls returns the number of polls performed.
func (m *Monitor) Polls() uint64 { return m.polls.Load() }

// Changes returns the number of applied topology changes.
func (m *Monitor) Changes() uint64 { return m.changes.Load() }

// Failures returns the number of polls whose read or reassignment
// failed.
func (m *Monitor) Failures() uint64 { return m.failures.Load() }
