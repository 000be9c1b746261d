// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workload

// The vector kernels apply buf = buf*scale + addend, n times, on full
// registers: 128-bit SSE, 256-bit AVX, two 256-bit FMA accumulators
// for AVX2, and one 512-bit FMA for AVX-512. Callers guarantee the
// required feature is present.

//go:noescape
func sseUnit(buf *[4]float32, addend, scale float32, n int)

//go:noescape
func avxUnit(buf *[8]float32, addend, scale float32, n int)

//go:noescape
func avx2Unit(buf *[16]float32, addend, scale float32, n int)

//go:noescape
func avx512Unit(buf *[16]float32, addend, scale float32, n int)
