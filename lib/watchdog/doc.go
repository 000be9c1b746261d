// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records a frequency policy a run is about to
// change, so a run killed before it could restore the policy leaves
// enough behind for the next invocation to put it back.
//
// The workflow:
//
//  1. Before the first privileged write: call [Write] with the
//     captured maxima and governors and the current boot ID.
//  2. Run. Throttling lowers scaling_max_freq.
//  3. After restoring the policy: call [Clear].
//  4. If the process died between 1 and 3, the next invocation calls
//     [Check], finds the state from the same boot, re-applies it and
//     calls [Clear].
//
// The state file is written atomically (write to temporary file,
// fsync, rename into place, fsync parent directory) so readers never
// see a partial or corrupt state. [Check] ignores state from a
// previous boot: a reboot resets cpufreq policy already, and the
// recorded maxima may not fit the hardware any more.
package watchdog
