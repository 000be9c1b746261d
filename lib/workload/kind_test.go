// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"testing"

	"github.com/bureau-foundation/coreburn/lib/hwinfo"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"INT", KindInt},
		{"int", KindInt},
		{"integer", KindInt},
		{"float", KindFloat},
		{"FP", KindFloat},
		{"sse", KindSSE},
		{"Avx", KindAVX},
		{"AVX2", KindAVX2},
		{"avx2+fma", KindAVX2},
		{"AVX512", KindAVX512},
		{"avx-512", KindAVX512},
		{" mixed ", KindMixed},
	}
	for _, test := range tests {
		got, err := ParseKind(test.input)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseKind(%q) = %v, want %v", test.input, got, test.want)
		}
	}

	for _, invalid := range []string{"", "avx1024", "neon"} {
		if _, err := ParseKind(invalid); err == nil {
			t.Errorf("ParseKind(%q) should fail", invalid)
		}
	}
}

func TestKindStringRoundtrip(t *testing.T) {
	for _, kind := range Kinds() {
		text, err := kind.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", kind, err)
		}
		var parsed Kind
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if parsed != kind {
			t.Errorf("roundtrip %v -> %q -> %v", kind, text, parsed)
		}
	}
	if _, err := Kind(42).MarshalText(); err == nil {
		t.Error("MarshalText of an invalid kind should fail")
	}
	if got := Kind(42).String(); got != "Kind(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestKindRequires(t *testing.T) {
	want := map[Kind]hwinfo.Feature{
		KindInt:    hwinfo.FeatureNone,
		KindFloat:  hwinfo.FeatureNone,
		KindSSE:    hwinfo.FeatureSSE,
		KindAVX:    hwinfo.FeatureAVX,
		KindAVX2:   hwinfo.FeatureAVX2FMA,
		KindAVX512: hwinfo.FeatureAVX512F,
		KindMixed:  hwinfo.FeatureAVX,
	}
	for kind, feature := range want {
		if got := kind.Requires(); got != feature {
			t.Errorf("%v.Requires() = %v, want %v", kind, got, feature)
		}
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		input string
		want  Ratio
	}{
		{"", EqualRatio},
		{"3:2:1", Ratio{Int: 3, Float: 2, Vector: 1}},
		{" 0 : 0 : 5 ", Ratio{Vector: 5}},
	}
	for _, test := range tests {
		got, err := ParseRatio(test.input)
		if err != nil {
			t.Errorf("ParseRatio(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseRatio(%q) = %v, want %v", test.input, got, test.want)
		}
	}

	for _, invalid := range []string{"1:2", "1:2:3:4", "a:b:c", "-1:1:1", "0:0:0"} {
		if _, err := ParseRatio(invalid); err == nil {
			t.Errorf("ParseRatio(%q) should fail", invalid)
		}
	}

	if got := (Ratio{}).Normalize(); got != EqualRatio {
		t.Errorf("zero Ratio normalizes to %v", got)
	}
	if got := (Ratio{Int: 3, Float: 2, Vector: 1}).String(); got != "3:2:1" {
		t.Errorf("String() = %q", got)
	}
}
