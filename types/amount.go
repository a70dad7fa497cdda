// Package types provides common types used across Tollgate.
package types

import (
	"fmt"
	"strconv"
)

// Amount is a token value in base units. All arithmetic is
// integer-only — no floating point.
//
// The engine never interprets units; whatever the injected token
// transferor settles in is what an Amount counts.
type Amount int64

// FeeDenominator is the basis-point scale: 10000 bps = 100%.
const FeeDenominator = 10000

// Tokens creates an Amount from a base-unit count.
func Tokens(n int64) Amount { return Amount(n) }

// Int64 returns the raw base-unit count.
func (a Amount) Int64() int64 { return int64(a) }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// String returns the base-unit count as a decimal string.
func (a Amount) String() string { return strconv.FormatInt(int64(a), 10) }

// SplitFee divides the amount into a platform fee and a net remainder
// for the given basis-point rate. The fee rounds down and the
// remainder absorbs the rounding, so fee + net == a always holds.
// Panics if bps is outside [0, FeeDenominator] (programming error:
// validate rates with ValidBasisPoints at the boundary).
func (a Amount) SplitFee(bps int) (fee, net Amount) {
	if !ValidBasisPoints(bps) {
		panic(fmt.Sprintf("types: invalid fee basis points %d", bps))
	}

	fee = Amount(int64(a) * int64(bps) / FeeDenominator)
	net = a - fee

	return fee, net
}

// ValidBasisPoints reports whether bps is a representable fee rate:
// 0 (no fee) through FeeDenominator (the entire amount).
func ValidBasisPoints(bps int) bool {
	return bps >= 0 && bps <= FeeDenominator
}

// Sum calculates the sum of multiple amounts.
func Sum(values ...Amount) Amount {
	var total Amount
	for _, v := range values {
		total += v
	}

	return total
}
