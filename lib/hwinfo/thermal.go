// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"

	"github.com/spf13/afero"
)

// Plausible physical range for a CPU temperature reading. Anything
// outside it comes from a misconfigured or transiently broken sensor
// and must not reach the feedback controller.
const (
	MinPlausibleCelsius = -20.0
	MaxPlausibleCelsius = 150.0
)

// thermalZoneCandidates are tried in order before the hwmon scan.
var thermalZoneCandidates = []string{
	"/sys/class/thermal/thermal_zone0/temp",
	"/sys/class/thermal/thermal_zone1/temp",
}

// hwmonSlots is the number of /sys/class/hwmon/hwmonN entries scanned.
const hwmonSlots = 64

// FindTemperatureSensor returns the first readable sensor path: the
// fixed thermal zone candidates first, then hwmon0..hwmon63 temp1_input.
func FindTemperatureSensor(fs afero.Fs) (string, bool) {
	for _, candidate := range thermalZoneCandidates {
		if readable(fs, candidate) {
			return candidate, true
		}
	}
	for slot := 0; slot < hwmonSlots; slot++ {
		candidate := fmt.Sprintf("/sys/class/hwmon/hwmon%d/temp1_input", slot)
		if readable(fs, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// ReadTemperature reads a sensor and returns degrees Celsius. Raw
// values over 1000 are taken to be millidegrees. The boolean is false
// for unreadable files and for readings outside the plausible range.
func ReadTemperature(fs afero.Fs, path string) (float64, bool) {
	if path == "" {
		return 0, false
	}
	raw, ok := ReadSysfsInt64(fs, path)
	if !ok {
		return 0, false
	}
	celsius := float64(raw)
	if raw > 1000 {
		celsius = float64(raw) / 1000
	}
	if celsius < MinPlausibleCelsius || celsius > MaxPlausibleCelsius {
		return 0, false
	}
	return celsius, true
}
