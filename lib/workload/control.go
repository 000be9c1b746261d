// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"sync"
	"sync/atomic"
)

// Control is the stop signal shared by every thread of one run. The
// flag is read by workers after each unit; the channel wakes sleepers.
type Control struct {
	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewControl returns a Control that has not been stopped.
func NewControl() *Control {
	return &Control{done: make(chan struct{})}
}

// Stop sets the flag. It may be called any number of times from any
// goroutine.
func (c *Control) Stop() {
	c.once.Do(func() {
		c.stopped.Store(true)
		close(c.done)
	})
}

// Stopped reports whether Stop has been called.
func (c *Control) Stopped() bool { return c.stopped.Load() }

// Done is closed by Stop.
func (c *Control) Done() <-chan struct{} { return c.done }
