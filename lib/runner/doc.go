// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner orchestrates one coreburn run.
//
// [Prepare] performs every pre-run check against the host described by
// an [Environment]: profile validation, tick-counter readability, the
// allowed CPU set and thread ceiling, the capability required by the
// workload kind, temperature sensor discovery, DCL table loading, and a
// pinning check of the planned CPUs. It returns a [Plan] without
// spawning anything, which is all a check-only invocation needs. Every
// failure wraps [ErrPreRun].
//
// [Run] executes a plan. The calling goroutine owns the control loop:
// each interval it builds one immutable [Snapshot] (utilization,
// per-core frequency, temperature, power, per-worker operation
// deltas), evaluates the frequency controller, feeds the DCL tracker,
// and hands the snapshot to the [Observer] and the telemetry log. The
// run ends at the requested duration, when the temperature reaches the
// stop threshold, or when the context is cancelled; all three set the
// same stop signal. Workers are joined before [Run] returns a
// [Result]. Failures after workers were started wrap [ErrRunFailed].
//
// Degraded paths never abort a run: a missing sensor disables
// auto-stop and throttling, unavailable registers fall back to the
// cpufreq frequency, and a failing telemetry log is dropped for the
// rest of the run. Each logs one warning.
package runner
