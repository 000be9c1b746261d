// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/coreburn/lib/clock"
	"github.com/bureau-foundation/coreburn/lib/hwinfo"
)

// ErrCapabilityMissing is returned when the host cannot execute the
// requested kind.
var ErrCapabilityMissing = errors.New("workload: required capability not present")

// ErrWorkerStart is returned when a worker could not be placed on its
// OS thread.
var ErrWorkerStart = errors.New("workload: worker start failed")

// EngineConfig describes the workers of one run.
type EngineConfig struct {
	Kind        Kind
	Ratio       Ratio
	Threads     int
	Utilization int
	Period      time.Duration

	// Capabilities must contain Kind.Requires().
	Capabilities hwinfo.Capabilities

	Clock     clock.Clock
	Placement Placement
	Logger    *slog.Logger

	// NewUnit, if set, replaces the bound kernel of each worker.
	NewUnit func(index int) Unit
}

// Engine owns the worker goroutines of one run.
type Engine struct {
	config  EngineConfig
	control *Control
	workers []*Worker
	logger  *slog.Logger

	mu      sync.Mutex
	group   *errgroup.Group
	started bool
	// procs is the GOMAXPROCS value to restore after the join, 0 when
	// Start left it alone.
	procs int
}

// CheckCapability reports whether kind can run with caps.
func CheckCapability(kind Kind, caps hwinfo.Capabilities) error {
	required := kind.Requires()
	if !caps.Has(required) {
		return fmt.Errorf("%w: %s needs %s, host has %s", ErrCapabilityMissing, kind, required, caps)
	}
	return nil
}

// NewEngine validates config and builds the workers. control is shared
// with the rest of the run; stopping it stops the engine.
func NewEngine(config EngineConfig, control *Control) (*Engine, error) {
	if err := CheckCapability(config.Kind, config.Capabilities); err != nil {
		return nil, err
	}
	if config.Threads <= 0 {
		return nil, fmt.Errorf("workload: thread count must be positive, got %d", config.Threads)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	logger := config.Logger.With("component", "workload")

	workers := make([]*Worker, config.Threads)
	for index := range workers {
		workerConfig := WorkerConfig{
			Index:       index,
			Kind:        config.Kind,
			Ratio:       config.Ratio,
			Utilization: config.Utilization,
			Period:      config.Period,
			Clock:       config.Clock,
			Placement:   config.Placement,
			Logger:      logger,
		}
		if config.NewUnit != nil {
			workerConfig.Unit = config.NewUnit(index)
		}
		worker, err := NewWorker(workerConfig)
		if err != nil {
			return nil, err
		}
		workers[index] = worker
	}
	return &Engine{
		config:  config,
		control: control,
		workers: workers,
		logger:  logger,
	}, nil
}

// Start spawns every worker and waits until each has been placed on
// its thread. If any worker fails to start, the already started ones
// are stopped and joined before Start returns the error.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("workload: engine already started")
	}
	e.started = true
	e.mu.Unlock()

	// Each worker holds an OS thread; the orchestrator and the monitor
	// need room to run beside them.
	if want := len(e.workers) + 2; runtime.GOMAXPROCS(0) < want {
		previous := runtime.GOMAXPROCS(want)
		e.mu.Lock()
		e.procs = previous
		e.mu.Unlock()
		e.logger.Debug("raised GOMAXPROCS", "from", previous, "to", want)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	ready := make(chan error, len(e.workers))
	for _, worker := range e.workers {
		group.Go(func() error {
			worker.Run(e.control, ready)
			return nil
		})
	}
	// Stop everyone when the caller's context ends.
	go func() {
		select {
		case <-groupCtx.Done():
			e.control.Stop()
		case <-e.control.Done():
		}
	}()

	e.mu.Lock()
	e.group = group
	e.mu.Unlock()

	var startErrors []error
	for range e.workers {
		if err := <-ready; err != nil {
			startErrors = append(startErrors, err)
		}
	}
	if len(startErrors) > 0 {
		e.control.Stop()
		_ = e.Wait()
		return fmt.Errorf("%w: %w", ErrWorkerStart, errors.Join(startErrors...))
	}
	e.logger.Info("workers started",
		"threads", len(e.workers),
		"kind", e.config.Kind.String(),
		"utilization_percent", e.config.Utilization,
		"period", e.config.Period,
	)
	return nil
}

// Stop signals every worker to finish. It does not wait.
func (e *Engine) Stop() { e.control.Stop() }

// Wait joins every worker and puts back the GOMAXPROCS value Start
// replaced. Returns nil if Start was never called.
func (e *Engine) Wait() error {
	e.mu.Lock()
	group := e.group
	e.mu.Unlock()
	if group == nil {
		return nil
	}
	err := group.Wait()

	e.mu.Lock()
	procs := e.procs
	e.procs = 0
	e.mu.Unlock()
	if procs > 0 {
		runtime.GOMAXPROCS(procs)
	}
	return err
}

// Descriptors returns the descriptor of every worker, by index.
func (e *Engine) Descriptors() []*Descriptor {
	descriptors := make([]*Descriptor, len(e.workers))
	for i, worker := range e.workers {
		descriptors[i] = worker.descriptor
	}
	return descriptors
}

// Totals returns the accounting of every worker. The CPU is the one
// currently assigned, or -1 without a Placement.
func (e *Engine) Totals() []Total {
	totals := make([]Total, len(e.workers))
	for i, worker := range e.workers {
		descriptor := worker.descriptor
		cpu := -1
		if e.config.Placement != nil {
			cpu = e.config.Placement.CPU(descriptor.Index)
		}
		totals[i] = Total{
			Index:      descriptor.Index,
			CPU:        cpu,
			Operations: descriptor.Operations(),
			Busy:       descriptor.Busy(),
			Slept:      descriptor.Slept(),
		}
	}
	return totals
}
