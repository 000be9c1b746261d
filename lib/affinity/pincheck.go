// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"fmt"
	"runtime"
)

type pinCheck struct {
	refused map[int]error
	err     error
}

// CheckPinning pins a dedicated OS thread to each CPU of topology in
// turn and returns the CPUs that refused. The thread's original mask
// is then restored; a failure to read or restore it is the returned
// error.
//
// The caller's thread is never pinned. A thread whose mask could not
// be restored is not returned to the runtime: its goroutine exits
// while still locked, which terminates it.
func CheckPinning(pinner Pinner, topology Topology) (map[int]error, error) {
	done := make(chan pinCheck, 1)
	go func() {
		runtime.LockOSThread()
		outcome := checkOnThread(pinner, topology)
		if outcome.err == nil {
			runtime.UnlockOSThread()
		}
		done <- outcome
	}()
	outcome := <-done
	return outcome.refused, outcome.err
}

// checkOnThread runs on a locked thread.
func checkOnThread(pinner Pinner, topology Topology) pinCheck {
	tid := pinner.ThreadID()
	original, readErr := pinner.Affinity(tid)

	refused := make(map[int]error)
	for _, cpu := range topology.cpus {
		if err := pinner.Pin(tid, cpu); err != nil {
			refused[cpu] = err
		}
	}
	if readErr != nil {
		return pinCheck{refused, fmt.Errorf("reading checking thread affinity: %w", readErr)}
	}
	if err := pinner.Pin(tid, original...); err != nil {
		return pinCheck{refused, fmt.Errorf("restoring checking thread affinity: %w", err)}
	}
	return pinCheck{refused, nil}
}
