// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package affinity keeps workload threads pinned to CPUs the process
// is allowed to run on.
//
// A [Topology] is the ordered set of allowed logical CPUs. Worker
// assignments in the [Table] are slots into that set, so "slot <
// Count()" is the validity condition. The [Monitor] polls the allowed
// set (once per second by default); when it changes, every worker whose
// slot is out of range moves to slot index % count and its thread is
// re-pinned by thread id.
//
// The table lock is taken by the monitor during a reassignment and by
// a worker only at its period boundary (Refresh), never inside a work
// unit. A re-pin that fails from the monitor is left pending and the
// worker retries it on its own thread at the next boundary.
package affinity
