// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hwinfo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// DeviceMSR reads registers through the msr driver's /dev/cpu/N/msr
// character devices, where the file offset selects the register.
// Opened descriptors are cached per CPU until Close.
type DeviceMSR struct {
	mu    sync.Mutex
	files map[int]int
}

// NewDeviceMSR returns a reader for the local machine.
func NewDeviceMSR() *DeviceMSR {
	return &DeviceMSR{files: make(map[int]int)}
}

// ReadMSR implements [MSRReader]. Permission and missing-device
// failures wrap [ErrMSRUnavailable].
func (d *DeviceMSR) ReadMSR(cpu int, register uint32) (uint64, error) {
	fd, err := d.open(cpu)
	if err != nil {
		return 0, err
	}
	var buffer [8]byte
	count, err := unix.Pread(fd, buffer[:], int64(register))
	if err != nil {
		if errors.Is(err, unix.EIO) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return 0, fmt.Errorf("reading register %#x on cpu %d: %v: %w", register, cpu, err, ErrMSRUnavailable)
		}
		return 0, fmt.Errorf("reading register %#x on cpu %d: %w", register, cpu, err)
	}
	if count != len(buffer) {
		return 0, fmt.Errorf("reading register %#x on cpu %d: short read of %d bytes", register, cpu, count)
	}
	return binary.LittleEndian.Uint64(buffer[:]), nil
}

func (d *DeviceMSR) open(cpu int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fd, ok := d.files[cpu]; ok {
		return fd, nil
	}
	path := fmt.Sprintf("/dev/cpu/%d/msr", cpu)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return -1, fmt.Errorf("opening %s: %v: %w", path, err, ErrMSRUnavailable)
		}
		return -1, fmt.Errorf("opening %s: %w", path, err)
	}
	d.files[cpu] = fd
	return fd, nil
}

// Close releases all cached descriptors.
func (d *DeviceMSR) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for cpu, fd := range d.files {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.files, cpu)
	}
	return firstErr
}
