// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package hwinfo

import "fmt"

// DeviceMSR is unavailable off Linux; every read fails with
// [ErrMSRUnavailable].
type DeviceMSR struct{}

// NewDeviceMSR returns a reader that always fails.
func NewDeviceMSR() *DeviceMSR { return &DeviceMSR{} }

// ReadMSR implements [MSRReader].
func (d *DeviceMSR) ReadMSR(cpu int, register uint32) (uint64, error) {
	return 0, fmt.Errorf("cpu %d register %#x: %w", cpu, register, ErrMSRUnavailable)
}

// Close is a no-op.
func (d *DeviceMSR) Close() error { return nil }
