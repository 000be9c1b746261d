// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import "errors"

// ErrPreRun wraps every failure detected before workers are spawned.
var ErrPreRun = errors.New("pre-run validation failed")

// ErrRunFailed wraps failures after the run started.
var ErrRunFailed = errors.New("run failed")

// StopReason records why the control loop ended.
type StopReason string

const (
	StopDuration    StopReason = "duration"
	StopTemperature StopReason = "temperature"
	StopSignal      StopReason = "signal"
	// StopWorkers means the workers stopped on their own, which only
	// happens when the engine's context ended.
	StopWorkers StopReason = "workers"
)
