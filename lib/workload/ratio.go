// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"fmt"
	"strconv"
	"strings"
)

// Ratio weights the integer, float and vector shares of a MIXED
// workload. The zero value means equal weighting.
type Ratio struct {
	Int    uint32
	Float  uint32
	Vector uint32
}

// EqualRatio is the default 1:1:1 weighting.
var EqualRatio = Ratio{Int: 1, Float: 1, Vector: 1}

// ParseRatio parses "I:F:V", e.g. "3:2:1". An empty string yields
// [EqualRatio]. Individual weights may be zero but not all of them.
func ParseRatio(text string) (Ratio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EqualRatio, nil
	}
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return Ratio{}, fmt.Errorf("mixed ratio %q: want three weights as int:float:vector", text)
	}
	var weights [3]uint32
	for i, part := range parts {
		value, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return Ratio{}, fmt.Errorf("mixed ratio %q: weight %q is not a non-negative integer", text, part)
		}
		weights[i] = uint32(value)
	}
	ratio := Ratio{Int: weights[0], Float: weights[1], Vector: weights[2]}
	if ratio.total() == 0 {
		return Ratio{}, fmt.Errorf("mixed ratio %q: at least one weight must be positive", text)
	}
	return ratio, nil
}

// Normalize returns r, or [EqualRatio] for the zero value.
func (r Ratio) Normalize() Ratio {
	if r.total() == 0 {
		return EqualRatio
	}
	return r
}

func (r Ratio) total() uint64 {
	return uint64(r.Int) + uint64(r.Float) + uint64(r.Vector)
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d:%d", r.Int, r.Float, r.Vector)
}

// MarshalText implements encoding.TextMarshaler.
func (r Ratio) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ratio) UnmarshalText(text []byte) error {
	parsed, err := ParseRatio(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
