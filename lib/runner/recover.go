// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/bureau-foundation/coreburn/lib/freqctl"
	"github.com/bureau-foundation/coreburn/lib/hwinfo"
	"github.com/bureau-foundation/coreburn/lib/watchdog"
)

// RecoverFrequency re-applies the frequency policy recorded at path by
// a run that ended before restoring it, then removes the file. It
// reports whether a state from the current boot was found. On a write
// failure the file is kept so a later call can retry.
func RecoverFrequency(path string, env Environment) (bool, error) {
	env = env.withDefaults()
	state, found, err := watchdog.Check(path, hwinfo.ReadBootID(env.FS))
	if err != nil {
		return false, fmt.Errorf("reading frequency state: %w", err)
	}
	if !found {
		// Absent, or left by a previous boot whose policy is gone.
		return false, watchdog.Clear(path)
	}

	writer := freqctl.NewWriter(env.FS)
	var firstErr error
	for _, cpu := range slices.Sorted(maps.Keys(state.Governors)) {
		if err := writer.SetGovernor(cpu, state.Governors[cpu]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, cpu := range slices.Sorted(maps.Keys(state.MaxKHz)) {
		var err error
		if minimum, ok := state.MinKHz[cpu]; ok {
			err = writer.SetMinMax(cpu, freqctl.Limits{MinKHz: minimum, MaxKHz: state.MaxKHz[cpu]})
		} else {
			err = writer.SetMax(cpu, state.MaxKHz[cpu])
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return true, fmt.Errorf("re-applying frequency policy from %s: %w", path, firstErr)
	}
	if err := watchdog.Clear(path); err != nil {
		return true, err
	}
	env.Logger.Warn("re-applied the frequency policy of an interrupted run",
		"path", path,
		"pid", state.PID,
		"fingerprint", state.Fingerprint,
		"cpus", len(state.MaxKHz),
	)
	return true, nil
}

// recordFrequencyState writes the captured policy before the run
// changes it. Failure only loses crash recovery.
func (r *run) recordFrequencyState() {
	profile := r.plan.Profile
	maxima, governors := r.controller.Captured()
	if profile.Governor == "" {
		governors = nil
	}
	var minima map[int]uint64
	if len(profile.FrequencyLimits) > 0 {
		minima = r.controller.CapturedMin()
	}
	state := watchdog.State{
		PID:         os.Getpid(),
		BootID:      hwinfo.ReadBootID(r.env.FS),
		Fingerprint: r.plan.Fingerprint,
		MaxKHz:      maxima,
		MinKHz:      minima,
		Governors:   governors,
		Timestamp:   r.env.Clock.Now(),
	}
	if err := watchdog.Write(profile.FrequencyState, state); err != nil {
		r.logger.Warn("recording frequency state failed; a crash will leave the policy changed",
			"path", profile.FrequencyState, "error", err)
		return
	}
	r.stateRecorded = true
}
