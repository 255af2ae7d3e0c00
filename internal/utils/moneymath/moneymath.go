// Package moneymath holds the fixed-precision primitives every money computation in
// the ledger goes through.
//
// Rounding rule: half away from zero (decimal.Round). Ledger amounts are positive
// magnitudes, so for them this is plain half-up: 10.555 -> 10.56, 100.5 -> 101,
// 2.5 -> 3. Signed balances round symmetrically: -10.555 -> -10.56.
// Formatting uses the same rule, so a displayed amount never disagrees with the
// stored one.
package moneymath

import (
	"github.com/shopspring/decimal"
)

var half = decimal.New(5, -1)

// RoundToPrecision rounds amount to precision decimal digits.
func RoundToPrecision(amount decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Round(precision)
}

// Epsilon returns half of the smallest representable unit: 0.5 × 10^-precision.
func Epsilon(precision int32) decimal.Decimal {
	return half.Mul(decimal.New(1, -precision))
}

// AmountsAreEqual reports whether |a-b| < Epsilon(precision).
func AmountsAreEqual(a, b decimal.Decimal, precision int32) bool {
	return a.Sub(b).Abs().LessThan(Epsilon(precision))
}

// Differs is the negation of AmountsAreEqual, used to decide whether a cached value
// needs rewriting.
func Differs(a, b decimal.Decimal, precision int32) bool {
	return !AmountsAreEqual(a, b, precision)
}

// SafeAdd adds and rounds.
func SafeAdd(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return RoundToPrecision(a.Add(b), precision)
}

// SafeSubtract subtracts and rounds.
func SafeSubtract(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return RoundToPrecision(a.Sub(b), precision)
}

// SafeMultiply multiplies and rounds, e.g. converting with an exchange rate.
func SafeMultiply(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return RoundToPrecision(a.Mul(b), precision)
}

// Sum accumulates amounts, rounding after every step.
func Sum(amounts []decimal.Decimal, precision int32) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = SafeAdd(total, a, precision)
	}
	return total
}

// Format renders amount with exactly precision fraction digits.
func Format(amount decimal.Decimal, precision int32) string {
	return amount.StringFixed(precision)
}

// FromFloat converts a float input (e.g. from a UI layer) at the given precision.
func FromFloat(f float64, precision int32) decimal.Decimal {
	return RoundToPrecision(decimal.NewFromFloat(f), precision)
}
