// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !amd64

package workload

// Off amd64 no vector tier is ever reported present, so these only
// exist to satisfy the bindings.

func sseUnit(buf *[4]float32, addend, scale float32, n int)     { multiplyAdd(buf[:], addend, scale, n) }
func avxUnit(buf *[8]float32, addend, scale float32, n int)     { multiplyAdd(buf[:], addend, scale, n) }
func avx2Unit(buf *[16]float32, addend, scale float32, n int)   { multiplyAdd(buf[:], addend, scale, n) }
func avx512Unit(buf *[16]float32, addend, scale float32, n int) { multiplyAdd(buf[:], addend, scale, n) }

func multiplyAdd(buffer []float32, addend, scale float32, n int) {
	for range n {
		for i := range buffer {
			buffer[i] = buffer[i]*scale + addend
		}
	}
}
