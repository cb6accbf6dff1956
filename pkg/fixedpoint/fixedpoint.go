// Package fixedpoint provides the scaled-integer representation used for
// prices and quantities across the engine. Amounts are stored as int64
// minor units (two fractional digits), so repeated partial fills never
// accumulate floating-point drift. Conversion to and from decimal strings
// happens only at process boundaries.
package fixedpoint

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the number of minor units per whole unit.
const Scale = 100

const fracDigits = 2

// ErrTooPrecise is returned when a decimal value carries more fractional
// digits than the fixed-point scale can represent. Values are rejected
// rather than silently rounded.
var ErrTooPrecise = errors.New("fixedpoint: value exceeds supported precision")

// Amount is a quantity or price in minor units.
type Amount int64

// FromDecimal converts a decimal value into an Amount.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(fracDigits)
	if !scaled.IsInteger() {
		return 0, ErrTooPrecise
	}
	return Amount(scaled.IntPart()), nil
}

// FromString parses a decimal string such as "25.50" into an Amount.
func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return FromDecimal(d)
}

// FromUnits builds an Amount from a whole number of units.
func FromUnits(units int64) Amount {
	return Amount(units * Scale)
}

// Decimal returns the amount as a decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -fracDigits)
}

// String formats the amount with two fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(fracDigits)
}

// Float64 returns the amount as a float64. Used only by the derived
// statistics layer, never by matching arithmetic.
func (a Amount) Float64() float64 {
	return float64(a) / Scale
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}
