package desk

import "math/bits"

// Checked uint64 arithmetic for the fixed-point price math. All divisions in
// the engine truncate toward zero; that rounding is part of the contract, so
// the helpers only guard the products and sums that can actually overflow.

// addU64 returns a+b and reports whether the sum fits in 64 bits.
func addU64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// mulU64 returns a*b and reports whether the product fits in 64 bits.
func mulU64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}
