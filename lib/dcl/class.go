// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dcl

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/coreburn/lib/workload"
)

// Class is a capacitance (Cdyn) class.
type Class int

const (
	ClassLow Class = iota
	ClassMedium
	ClassHigh
)

var classNames = [...]string{
	ClassLow:    "low",
	ClassMedium: "medium",
	ClassHigh:   "high",
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

// ParseClass accepts the class names case-insensitively.
func ParseClass(name string) (Class, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for class, candidate := range classNames {
		if candidate == normalized {
			return Class(class), nil
		}
	}
	return 0, fmt.Errorf("unknown capacitance class %q (want low, medium or high)", name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(classNames) {
		return nil, fmt.Errorf("invalid capacitance class %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// classByKind is indexed by workload.Kind. MIXED spends its vector
// share on 256-bit AVX and sits with it.
var classByKind = [...]Class{
	workload.KindInt:    ClassLow,
	workload.KindFloat:  ClassLow,
	workload.KindSSE:    ClassLow,
	workload.KindAVX:    ClassMedium,
	workload.KindAVX2:   ClassHigh,
	workload.KindAVX512: ClassHigh,
	workload.KindMixed:  ClassMedium,
}

// Classify returns the capacitance class of a workload kind. Kinds
// outside the table are treated as ClassHigh, the most conservative
// class.
func Classify(kind workload.Kind) Class {
	if kind < 0 || int(kind) >= len(classByKind) {
		return ClassHigh
	}
	return classByKind[kind]
}
