// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// coreburn drives every allowed CPU at a configurable duty cycle with
// a chosen instruction mix while sampling utilization, frequency,
// temperature and power once per interval.
//
// A run is planned first: the profile (defaults, then --config, then
// flags) is validated against the host, the CPU capabilities required
// by the workload kind are checked, and the temperature sensor and
// optional DCL table are located. --check stops there and prints the
// plan. Otherwise workers are started and the run ends when the
// duration elapses, the stop temperature is reached, or SIGINT/SIGTERM
// arrives.
//
// With --throttle the frequency controller lowers scaling_max_freq by
// a fixed step every interval the temperature is at or above the
// threshold. With --dcl the mean measured frequency is compared with
// the expected frequency of the workload kind.
//
// Exit status:
//
//	0  run completed, or --check succeeded
//	1  run failed after workers started
//	2  invalid configuration or unusable host (nothing was started)
//	3  DCL validation verdict FAIL
//
// "coreburn inspect LOG" prints a telemetry log as one JSON object per
// record. "coreburn restore STATE" re-applies the frequency policy a
// killed --restore-freq run recorded in its --freq-state file.
package main
