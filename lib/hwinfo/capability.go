// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Feature names a capability tier a workload kind can require.
type Feature int

const (
	// FeatureNone is required by kinds that run on any processor.
	FeatureNone Feature = iota
	FeatureSSE
	FeatureAVX
	// FeatureAVX2FMA requires both AVX2 and FMA3.
	FeatureAVX2FMA
	FeatureAVX512F
)

// String returns the conventional feature name.
func (f Feature) String() string {
	switch f {
	case FeatureNone:
		return "none"
	case FeatureSSE:
		return "sse"
	case FeatureAVX:
		return "avx"
	case FeatureAVX2FMA:
		return "avx2+fma"
	case FeatureAVX512F:
		return "avx512f"
	default:
		return "unknown"
	}
}

// Capabilities is the set of vector tiers that can be executed on the
// host. A tier is only set when both the processor advertises it and
// the operating system saves the matching register state.
type Capabilities struct {
	SSE     bool `json:"sse"`
	AVX     bool `json:"avx"`
	AVX2FMA bool `json:"avx2_fma"`
	AVX512F bool `json:"avx512f"`
}

// Has reports whether a feature is usable.
func (c Capabilities) Has(feature Feature) bool {
	switch feature {
	case FeatureNone:
		return true
	case FeatureSSE:
		return c.SSE
	case FeatureAVX:
		return c.AVX
	case FeatureAVX2FMA:
		return c.AVX2FMA
	case FeatureAVX512F:
		return c.AVX512F
	default:
		return false
	}
}

// String lists the usable tiers, e.g. "sse,avx,avx2+fma".
func (c Capabilities) String() string {
	var names []string
	for _, feature := range []Feature{FeatureSSE, FeatureAVX, FeatureAVX2FMA, FeatureAVX512F} {
		if c.Has(feature) {
			names = append(names, feature.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// CapabilityDetector reports host capabilities. The production detector
// is [HostCapabilities]; tests use [StaticCapabilities].
type CapabilityDetector interface {
	Capabilities() Capabilities
}

type hostDetector struct{}

// HostCapabilities returns a detector backed by the running processor.
//
// golang.org/x/sys/cpu only sets HasAVX, HasAVX2 and HasAVX512F after
// checking OSXSAVE and the XCR0 state bits, so each flag here already
// implies OS enablement of the YMM/ZMM state.
func HostCapabilities() CapabilityDetector { return hostDetector{} }

func (hostDetector) Capabilities() Capabilities {
	if runtime.GOARCH != "amd64" {
		return Capabilities{}
	}
	return Capabilities{
		SSE:     cpu.X86.HasSSE2,
		AVX:     cpu.X86.HasAVX && cpu.X86.HasOSXSAVE,
		AVX2FMA: cpu.X86.HasAVX2 && cpu.X86.HasFMA && cpu.X86.HasOSXSAVE,
		AVX512F: cpu.X86.HasAVX512F && cpu.X86.HasOSXSAVE,
	}
}

// StaticCapabilities is a detector returning a fixed value.
type StaticCapabilities Capabilities

// Capabilities returns the fixed value.
func (s StaticCapabilities) Capabilities() Capabilities { return Capabilities(s) }
