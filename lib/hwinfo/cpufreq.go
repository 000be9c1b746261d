// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"path"

	"github.com/spf13/afero"
)

// CPUBasePath is the sysfs directory holding cpuN entries.
const CPUBasePath = "/sys/devices/system/cpu"

// cpufreq attribute names under cpuN/cpufreq.
const (
	ScalingCurFreqFile     = "scaling_cur_freq"
	ScalingMaxFreqFile     = "scaling_max_freq"
	ScalingMinFreqFile     = "scaling_min_freq"
	ScalingGovernorFile    = "scaling_governor"
	CPUInfoMaxFreqFile     = "cpuinfo_max_freq"
	CPUInfoMinFreqFile     = "cpuinfo_min_freq"
	BaseFrequencyFile      = "base_frequency"
	AvailableGovernorsFile = "scaling_available_governors"
)

// CPUFreqPath returns the path of a cpufreq attribute for one CPU.
func CPUFreqPath(cpu int, attribute string) string {
	return path.Join(CPUBasePath, fmt.Sprintf("cpu%d", cpu), "cpufreq", attribute)
}

// ReadCoreFrequency returns the OS-reported current scaled frequency of
// a CPU in kHz.
func ReadCoreFrequency(fs afero.Fs, cpu int) (uint64, bool) {
	value, ok := ReadSysfsUint64(fs, CPUFreqPath(cpu, ScalingCurFreqFile))
	if !ok || value == 0 {
		return 0, false
	}
	return value, true
}

// ReadBaseFrequency returns the nominal (non-turbo) frequency of a CPU
// in kHz from base_frequency, which intel_pstate exposes. Other drivers
// do not, and the caller falls back to the cpuid clock.
func ReadBaseFrequency(fs afero.Fs, cpu int) (uint64, bool) {
	value, ok := ReadSysfsUint64(fs, CPUFreqPath(cpu, BaseFrequencyFile))
	if !ok || value == 0 {
		return 0, false
	}
	return value, true
}
