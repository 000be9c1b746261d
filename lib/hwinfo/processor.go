// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"github.com/klauspost/cpuid/v2"
)

// ProcessorInfo identifies the host processor.
type ProcessorInfo struct {
	Brand          string `json:"brand"`
	Vendor         string `json:"vendor"`
	Family         int    `json:"family"`
	Model          int    `json:"model"`
	Stepping       int    `json:"stepping"`
	PhysicalCores  int    `json:"physical_cores"`
	LogicalCores   int    `json:"logical_cores"`
	ThreadsPerCore int    `json:"threads_per_core"`

	// BaseKHz is the nominal clock reported by cpuid, or 0 when the
	// processor does not expose one.
	BaseKHz uint64 `json:"base_khz,omitempty"`
}

// DetectProcessor reads processor identity through cpuid.
func DetectProcessor() ProcessorInfo {
	info := ProcessorInfo{
		Brand:          cpuid.CPU.BrandName,
		Vendor:         cpuid.CPU.VendorString,
		Family:         cpuid.CPU.Family,
		Model:          cpuid.CPU.Model,
		Stepping:       cpuid.CPU.Stepping,
		PhysicalCores:  cpuid.CPU.PhysicalCores,
		LogicalCores:   cpuid.CPU.LogicalCores,
		ThreadsPerCore: cpuid.CPU.ThreadsPerCore,
	}
	if cpuid.CPU.Hz > 0 {
		info.BaseKHz = uint64(cpuid.CPU.Hz / 1000)
	}
	return info
}
