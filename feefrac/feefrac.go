// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package feefrac implements exact fee/size fractions used to rank
// transaction sets by feerate without floating point.
//
// Two orders are defined on FeeFrac values:
//
//   - The feerate order (FeeRateCompare, Higher, Lower) compares fee/size
//     ratios only, by cross multiplication.
//   - The total order (Compare, Less, Greater) breaks feerate ties by
//     preferring the smaller size, so that among sets of equal feerate the
//     smaller one ranks as better.
//
// Cross products are evaluated exactly.  When both fees fit in 32 bits the
// products fit in an int64; otherwise they are computed as 256-bit two's
// complement integers.
package feefrac

import (
	"cmp"
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// FeeFrac is a fee paid for a given size.  The zero value is the empty
// fraction, which has no defined feerate and compares equal in feerate to
// everything.
type FeeFrac struct {
	// Fee is the total fee, in satoshis.  It may be negative when
	// fractions are subtracted or fees are prioritised downwards.
	Fee int64

	// Size is the total size, in virtual bytes.
	Size int32
}

// New returns the fraction fee/size.
func New(fee int64, size int32) FeeFrac {
	return FeeFrac{Fee: fee, Size: size}
}

// IsEmpty reports whether the fraction has zero size.
func (f FeeFrac) IsEmpty() bool {
	return f.Size == 0
}

// Add returns the component-wise sum of f and o.
func (f FeeFrac) Add(o FeeFrac) FeeFrac {
	return FeeFrac{Fee: f.Fee + o.Fee, Size: f.Size + o.Size}
}

// Sub returns the component-wise difference of f and o.
func (f FeeFrac) Sub(o FeeFrac) FeeFrac {
	return FeeFrac{Fee: f.Fee - o.Fee, Size: f.Size - o.Size}
}

// String returns the fraction as fee/size.
func (f FeeFrac) String() string {
	return fmt.Sprintf("%d/%d", f.Fee, f.Size)
}

// FeeRateCompare compares the feerates of a and b, returning -1, 0 or +1.
// Sizes are ignored beyond their role in the ratio.
func FeeRateCompare(a, b FeeFrac) int {
	return mulCompare(a.Fee, b.Size, b.Fee, a.Size)
}

// Compare is the total order on fractions: higher feerate is greater, and on
// equal feerate the smaller size is greater.
func Compare(a, b FeeFrac) int {
	if c := FeeRateCompare(a, b); c != 0 {
		return c
	}
	return cmp.Compare(b.Size, a.Size)
}

// Higher reports whether f has a strictly higher feerate than o.
func (f FeeFrac) Higher(o FeeFrac) bool {
	return FeeRateCompare(f, o) > 0
}

// Lower reports whether f has a strictly lower feerate than o.
func (f FeeFrac) Lower(o FeeFrac) bool {
	return FeeRateCompare(f, o) < 0
}

// Dominates reports whether the feerate of f is at least that of o.
func (f FeeFrac) Dominates(o FeeFrac) bool {
	return FeeRateCompare(f, o) >= 0
}

// Less reports whether f ranks below o in the total order.
func (f FeeFrac) Less(o FeeFrac) bool {
	return Compare(f, o) < 0
}

// Greater reports whether f ranks above o in the total order.
func (f FeeFrac) Greater(o FeeFrac) bool {
	return Compare(f, o) > 0
}

// EvaluateFeeDown returns the fee of the first atSize bytes of f at f's
// feerate, rounded down.  atSize must lie in [0, f.Size].
func (f FeeFrac) EvaluateFeeDown(atSize int32) int64 {
	return f.evaluateFee(atSize, false)
}

// EvaluateFeeUp returns the fee of the first atSize bytes of f at f's
// feerate, rounded up.  atSize must lie in [0, f.Size].
func (f FeeFrac) EvaluateFeeUp(atSize int32) int64 {
	return f.evaluateFee(atSize, true)
}

func (f FeeFrac) evaluateFee(atSize int32, roundUp bool) int64 {
	if atSize < 0 || atSize > f.Size || f.Size <= 0 {
		panic(fmt.Sprintf("feefrac: cannot evaluate %v at size %d",
			f, atSize))
	}
	if atSize == f.Size {
		return f.Fee
	}

	// Work on the magnitude of the fee.  Flooring a negative value rounds
	// its magnitude up and vice versa.
	neg := f.Fee < 0
	magnitudeUp := roundUp != neg

	var num, size, quo, rem uint256.Int
	num.SetUint64(absUint64(f.Fee))
	size.SetUint64(uint64(atSize))
	num.Mul(&num, &size)
	size.SetUint64(uint64(f.Size))
	quo.Div(&num, &size)
	rem.Mod(&num, &size)
	if magnitudeUp && !rem.IsZero() {
		quo.AddUint64(&quo, 1)
	}

	result := int64(quo.Uint64())
	if neg {
		result = -result
	}
	return result
}

// mulCompare compares a*b against c*d exactly.
func mulCompare(a int64, b int32, c int64, d int32) int {
	if fitsInt32(a) && fitsInt32(c) {
		return cmp.Compare(a*int64(b), c*int64(d))
	}

	var left, right uint256.Int
	signedProduct(&left, a, b)
	signedProduct(&right, c, d)
	switch {
	case left.Eq(&right):
		return 0
	case left.Slt(&right):
		return -1
	default:
		return 1
	}
}

// signedProduct sets z to the two's complement 256-bit product a*b.
func signedProduct(z *uint256.Int, a int64, b int32) {
	var x, y uint256.Int
	setInt64(&x, a)
	setInt64(&y, int64(b))
	z.Mul(&x, &y)
}

// setInt64 sets z to the 256-bit two's complement encoding of v.
func setInt64(z *uint256.Int, v int64) {
	z.SetUint64(absUint64(v))
	if v < 0 {
		z.Neg(z)
	}
}

// absUint64 returns |v| as an unsigned value, which is exact for every v
// including math.MinInt64.
func absUint64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func fitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}
