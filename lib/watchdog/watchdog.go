// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the frequency policy captured before a run changed it.
type State struct {
	// PID of the process that wrote the state.
	PID int `json:"pid"`

	// BootID is /proc/sys/kernel/random/boot_id at write time. Check
	// discards state whose boot ID differs from the current one.
	BootID string `json:"boot_id"`

	// Fingerprint identifies the run plan, for diagnostics.
	Fingerprint string `json:"fingerprint,omitempty"`

	// MaxKHz is scaling_max_freq per CPU before the run.
	MaxKHz map[int]uint64 `json:"max_khz"`

	// MinKHz is scaling_min_freq per CPU before the run. Empty when
	// the run does not change minima.
	MinKHz map[int]uint64 `json:"min_khz,omitempty"`

	// Governors is scaling_governor per CPU before the run. Empty when
	// the run does not change governors.
	Governors map[int]string `json:"governors,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Write atomically writes a state file. The file is written to a
// temporary location in the same directory, fsynced for durability,
// and renamed into place. Readers never see a partial write.
//
// The file is created with mode 0600. The parent directory must
// already exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling watchdog state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary watchdog file: %w", err)
	}

	// Write, sync, close in that order. On failure remove the
	// temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary watchdog file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary watchdog file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary watchdog file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming watchdog file into place: %w", err)
	}

	// The rename is only durable once the directory entry is flushed.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Read reads and parses a state file. When the file does not exist,
// the returned error wraps os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing watchdog file %s: %w", path, err)
	}
	return state, nil
}

// Check reads a state file and reports whether it was written during
// the current boot. Returns false without error when the file does not
// exist or belongs to another boot. An empty bootID accepts any state.
//
// Any other error (permission denied, corrupt JSON) is returned as-is
// so the caller can distinguish "no state" from "state exists but
// unreadable."
func Check(path, bootID string) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	if bootID != "" && state.BootID != bootID {
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear removes a state file. Returns nil when the file does not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing watchdog file: %w", err)
	}
	return nil
}
