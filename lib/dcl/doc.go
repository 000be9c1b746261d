// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dcl validates measured core frequency against a Data Center
// List: the table of frequencies a CPU SKU is specified to sustain
// under each instruction class.
//
// Every workload kind falls into a capacitance class ([Classify]):
// scalar integer, scalar float and SSE are [ClassLow], AVX is
// [ClassMedium], AVX2 and AVX-512 are [ClassHigh]. Higher classes draw
// more dynamic power and run at lower specified frequencies, so a
// [Table] may give each class its own default tolerance.
//
// [Validate] produces a [Record]:
//
//	deviation = |measured - expected| / expected * 100
//	verdict   = PASS if deviation <= tolerance
//
// A [Histogram] tracks frequency residency in fixed-width buckets and a
// [Tracker] combines it with the running mean used as the measured
// frequency of a run.
//
// Tables are loaded from YAML (.yaml, .yml) or from JSON with comments
// (.json, .jsonc) by [LoadTable].
package dcl
