// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workload runs duty-cycled compute kernels on pinned OS
// threads.
//
// A [Kind] names one instruction class: integer mix, scalar float, or
// a vector multiply-add at 128, 256 (with FMA) or 512 bits. MIXED
// draws per unit among integer, float and 256-bit vector work with a
// caller-supplied [Ratio]. The kind is resolved into a bound work unit
// once, when the worker is built; the hot loop never switches on it.
//
// Each [Worker] executes units until its busy budget for the control
// period is spent, then sleeps for the rest of the period:
//
//	busy  = period * utilization / 100
//	sleep = period - busy
//
// The elapsed time is checked after every unit, and the shared
// [Control] stop flag is read on the same boundary, so a stop takes
// effect within one unit (or immediately, during the sleep).
//
// An [Engine] owns the workers of one run. It refuses to start a kind
// whose [hwinfo.Feature] is not present on the host: substituting a
// narrower kernel would invalidate any frequency measured against it.
// Thread placement is delegated to a [Placement], which the affinity
// package implements.
package workload
