// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/bureau-foundation/coreburn/lib/clock"
)

// DefaultPeriod is the control period of the duty cycle.
const DefaultPeriod = 100 * time.Millisecond

// Utilization bounds.
const (
	MinUtilization = 10
	MaxUtilization = 100
)

// Placement pins a worker's OS thread and keeps it on its assigned CPU.
type Placement interface {
	// Bind is called once on the worker's locked OS thread before the
	// first period.
	Bind(index int) error

	// Refresh is called at every period boundary. It applies an
	// assignment change that could not be applied from outside.
	Refresh(index int)

	// CPU returns the logical CPU currently assigned to index.
	CPU(index int) int
}

// WorkerConfig describes one worker.
type WorkerConfig struct {
	Index       int
	Kind        Kind
	Ratio       Ratio
	Utilization int
	Period      time.Duration

	Clock     clock.Clock
	Placement Placement
	Logger    *slog.Logger

	// Unit overrides the kernel bound from Kind. Tests use it to
	// drive a fake clock.
	Unit Unit
}

// Worker runs the duty cycle for one descriptor.
type Worker struct {
	descriptor *Descriptor
	unit       Unit
	busy       time.Duration
	period     time.Duration
	clock      clock.Clock
	placement  Placement
	logger     *slog.Logger
}

// NewWorker validates config and binds the kernel.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Utilization < MinUtilization || config.Utilization > MaxUtilization {
		return nil, fmt.Errorf("worker %d: utilization %d%% outside [%d,%d]",
			config.Index, config.Utilization, MinUtilization, MaxUtilization)
	}
	if config.Period <= 0 {
		config.Period = DefaultPeriod
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	unit := config.Unit
	if unit == nil {
		unit = bindUnit(config.Kind, config.Ratio, uint64(config.Index)+1)
	}
	return &Worker{
		descriptor: &Descriptor{
			Index:       config.Index,
			Kind:        config.Kind,
			Utilization: config.Utilization,
		},
		unit:      unit,
		busy:      config.Period * time.Duration(config.Utilization) / 100,
		period:    config.Period,
		clock:     config.Clock,
		placement: config.Placement,
		logger:    config.Logger.With("worker", config.Index),
	}, nil
}

// Descriptor returns the worker's shared descriptor.
func (w *Worker) Descriptor() *Descriptor { return w.descriptor }

// Run executes periods until control is stopped. It locks the calling
// goroutine to its OS thread. ready, if non-nil, receives the placement
// result before the first period.
//
// With a Placement the thread is never unlocked: its mask no longer
// matches the process, so the goroutine must exit still locked and the
// runtime terminates the thread instead of reusing it.
func (w *Worker) Run(control *Control, ready chan<- error) {
	runtime.LockOSThread()
	if w.placement == nil {
		defer runtime.UnlockOSThread()
	}

	var bindErr error
	if w.placement != nil {
		bindErr = w.placement.Bind(w.descriptor.Index)
	}
	if ready != nil {
		ready <- bindErr
	}
	if bindErr != nil {
		return
	}

	for !control.Stopped() {
		if w.placement != nil {
			w.placement.Refresh(w.descriptor.Index)
		}
		busy := w.runBusy(control)
		w.descriptor.busyNanos.Add(int64(busy))
		if control.Stopped() {
			return
		}
		if remaining := w.period - busy; remaining > 0 {
			start := w.clock.Now()
			select {
			case <-w.clock.After(remaining):
			case <-control.Done():
			}
			w.descriptor.sleepNanos.Add(int64(w.clock.Now().Sub(start)))
		}
	}
}

// runBusy executes units until the busy budget is spent or a stop is
// requested, and returns the time it took.
func (w *Worker) runBusy(control *Control) time.Duration {
	start := w.clock.Now()
	for {
		w.unit()
		w.descriptor.operations.Add(1)
		elapsed := w.clock.Now().Sub(start)
		if elapsed >= w.busy || control.Stopped() {
			return elapsed
		}
	}
}
