// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package workload

import (
	"errors"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// tidPlacement records the kernel id of the thread that binds.
type tidPlacement struct {
	tid atomic.Int64
}

func (p *tidPlacement) Bind(int) error {
	p.tid.Store(int64(unix.Gettid()))
	return nil
}

func (p *tidPlacement) Refresh(int) {}

func (p *tidPlacement) CPU(int) int { return 0 }

// A placed worker's thread carries a narrowed mask; once the worker
// exits, the thread must be gone rather than back in the scheduler's
// pool.
func TestPlacedWorkerThreadExitsWithWorker(t *testing.T) {
	control := NewControl()
	placement := &tidPlacement{}
	worker, err := NewWorker(WorkerConfig{
		Utilization: 100,
		Period:      time.Millisecond,
		Placement:   placement,
		Unit:        func() { control.Stop() },
	})
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(control, nil)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	tid := placement.tid.Load()
	if tid == int64(os.Getpid()) {
		t.Skip("worker ran on the main thread, which the runtime parks instead of terminating")
	}
	task := "/proc/self/task/" + strconv.FormatInt(tid, 10)
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := os.Stat(task)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker thread %s still alive after the worker exited (stat error %v)", task, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
