// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/coreburn/lib/hwinfo"
)

// Kind is a workload instruction class.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindSSE
	KindAVX
	KindAVX2
	KindAVX512
	KindMixed
)

var kindNames = [...]string{
	KindInt:    "INT",
	KindFloat:  "FLOAT",
	KindSSE:    "SSE",
	KindAVX:    "AVX",
	KindAVX2:   "AVX2",
	KindAVX512: "AVX512",
	KindMixed:  "MIXED",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindInt, KindFloat, KindSSE, KindAVX, KindAVX2, KindAVX512, KindMixed}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the kind names case-insensitively, plus the
// spellings "integer", "fp", "avx-512" and "avx2+fma".
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	switch normalized {
	case "INTEGER":
		return KindInt, nil
	case "FP":
		return KindFloat, nil
	case "AVX-512", "AVX512F":
		return KindAVX512, nil
	case "AVX2+FMA", "AVX2FMA":
		return KindAVX2, nil
	}
	for kind, candidate := range kindNames {
		if candidate == normalized {
			return Kind(kind), nil
		}
	}
	return 0, fmt.Errorf("unknown workload kind %q (want one of INT, FLOAT, SSE, AVX, AVX2, AVX512, MIXED)", name)
}

// Requires returns the capability a kind needs. MIXED needs AVX for its
// vector share.
func (k Kind) Requires() hwinfo.Feature {
	switch k {
	case KindSSE:
		return hwinfo.FeatureSSE
	case KindAVX, KindMixed:
		return hwinfo.FeatureAVX
	case KindAVX2:
		return hwinfo.FeatureAVX2FMA
	case KindAVX512:
		return hwinfo.FeatureAVX512F
	default:
		return hwinfo.FeatureNone
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid workload kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
