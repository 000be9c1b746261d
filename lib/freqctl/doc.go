// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package freqctl writes cpufreq policy and runs the thermal
// throttling loop.
//
// [Writer] is the privileged side: per-CPU scaling governor, scaling
// min/max, and a batch [Table] of limits. It goes through an afero.Fs
// rooted at /, so tests substitute an in-memory tree.
//
// [Controller] is evaluated once per control interval. When the
// interval temperature is at or above the threshold, every managed
// CPU's maximum is stepped down:
//
//	new_max = max(floor, current_max * (100 - step) / 100)
//
// and the committed value becomes the base for the next step. There is
// no ramp-up: the maximum stays reduced until the run ends, where
// [Controller.Restore] may put back the values captured at start.
package freqctl
