// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source shared by every timed loop in
// coreburn: the worker duty cycle, the affinity poll, and the
// orchestrator's control interval.
//
// Production code receives Real(). Tests receive Fake(), whose time only
// moves when Advance is called, so a duty cycle or a poll cadence can be
// checked exactly instead of with wall-clock tolerances.
//
// # Synchronizing with a FakeClock
//
// A goroutine that calls Sleep, After, or NewTicker registers a pending
// waiter. Tests call WaitForTimers before Advance so the advance cannot
// race the registration:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go monitor.Run(ctx)
//	fake.WaitForTimers(1)
//	fake.Advance(time.Second)
package clock
