// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size transforms and
sample rings.

Design Principles:
- Zero Allocations: all operations work on registers only
- Real-Time Safe: no locks, syscalls or blocking operations

Usage:

	// Round a requested ring capacity up so it can be indexed with a mask
	capacity := bitint.NextPowerOfTwo(5000) // Returns 8192

	// Verify an FFT size before planning the transform
	ok := bitint.IsPowerOfTwo(fftSize)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Subtracting 1
// first keeps exact powers of 2 unchanged: for 8, size-1 = 0b0111 has
// length 3 and 1<<3 = 8.
//
// Examples:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2. A power of 2 has exactly one bit
// set, so clearing the lowest set bit with n&(n-1) leaves 0.
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
