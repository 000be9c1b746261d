// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

// CounterDelta returns cur-prev for a free-running counter that is
// widthBits wide, treating a numerically smaller cur as one wrap of the
// counter modulus. Bits above widthBits are ignored. A width of 0 or
// above 64 is treated as 64.
func CounterDelta(prev, cur uint64, widthBits uint) uint64 {
	if widthBits == 0 || widthBits >= 64 {
		return cur - prev
	}
	mask := uint64(1)<<widthBits - 1
	return (cur - prev) & mask
}
