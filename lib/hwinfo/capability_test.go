// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"runtime"
	"testing"
)

func TestCapabilitiesHas(t *testing.T) {
	t.Parallel()

	caps := Capabilities{SSE: true, AVX: true}
	tests := []struct {
		feature Feature
		want    bool
	}{
		{FeatureNone, true},
		{FeatureSSE, true},
		{FeatureAVX, true},
		{FeatureAVX2FMA, false},
		{FeatureAVX512F, false},
		{Feature(99), false},
	}
	for _, test := range tests {
		if got := caps.Has(test.feature); got != test.want {
			t.Errorf("Has(%v) = %v, want %v", test.feature, got, test.want)
		}
	}
	if got := caps.String(); got != "sse,avx" {
		t.Errorf("String() = %q, want %q", got, "sse,avx")
	}
	if got := (Capabilities{}).String(); got != "none" {
		t.Errorf("empty String() = %q, want %q", got, "none")
	}
}

func TestStaticCapabilities(t *testing.T) {
	t.Parallel()

	var detector CapabilityDetector = StaticCapabilities{AVX512F: true}
	if got := detector.Capabilities(); got != (Capabilities{AVX512F: true}) {
		t.Errorf("Capabilities() = %+v", got)
	}
}

func TestHostCapabilitiesConsistent(t *testing.T) {
	t.Parallel()

	caps := HostCapabilities().Capabilities()
	if runtime.GOARCH != "amd64" {
		if caps != (Capabilities{}) {
			t.Errorf("non-amd64 capabilities = %+v, want none", caps)
		}
		return
	}
	// Every amd64 processor has SSE2, and each wider tier implies AVX.
	if !caps.SSE {
		t.Error("amd64 host without SSE")
	}
	if (caps.AVX2FMA || caps.AVX512F) && !caps.AVX {
		t.Errorf("wide vector units without AVX: %+v", caps)
	}
}

func TestFeatureString(t *testing.T) {
	t.Parallel()

	if got := FeatureAVX2FMA.String(); got != "avx2+fma" {
		t.Errorf("FeatureAVX2FMA = %q", got)
	}
	if got := Feature(-1).String(); got != "unknown" {
		t.Errorf("Feature(-1) = %q", got)
	}
}

func TestDetectProcessor(t *testing.T) {
	t.Parallel()

	info := DetectProcessor()
	if runtime.GOARCH == "amd64" && info.Vendor == "" {
		t.Error("amd64 processor without a vendor")
	}
	if info.LogicalCores < 0 {
		t.Errorf("LogicalCores = %d", info.LogicalCores)
	}
}
