// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ReadSysfsString reads a single-line sysfs file and returns its
// trimmed content. Returns "" on any error.
func ReadSysfsString(fs afero.Fs, path string) string {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ReadSysfsInt64 reads a signed integer from a sysfs file. The boolean
// is false when the file is missing, empty, or not an integer.
func ReadSysfsInt64(fs afero.Fs, path string) (int64, bool) {
	value := ReadSysfsString(fs, path)
	if value == "" {
		return 0, false
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return result, true
}

// ReadSysfsUint64 reads an unsigned integer from a sysfs file.
func ReadSysfsUint64(fs afero.Fs, path string) (uint64, bool) {
	value := ReadSysfsString(fs, path)
	if value == "" {
		return 0, false
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return result, true
}

// readable reports whether path can be opened for reading.
func readable(fs afero.Fs, path string) bool {
	file, err := fs.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}

// BootIDPath holds a random identifier the kernel generates at boot.
const BootIDPath = "/proc/sys/kernel/random/boot_id"

// ReadBootID returns the current boot identifier, "" when unreadable.
func ReadBootID(fs afero.Fs) string {
	return ReadSysfsString(fs, BootIDPath)
}
