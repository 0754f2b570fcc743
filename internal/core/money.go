// Package core provides money parsing and handling utilities.
//
// Amounts are kept in signed minor units. Parsing goes through
// shopspring/decimal so user and spreadsheet input never touches floats.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a signed decimal string to minor units.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Values with more
// than two fractional digits are rounded half away from zero.
//
// Examples:
//
//	ParseAmount("12.34")   -> 1234, nil
//	ParseAmount("-12,34")  -> -1234, nil
//	ParseAmount("0.005")   -> 1, nil
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

const maxCents = (1<<63 - 1) / 100

// FromMinorUnits returns the decimal representation of an amount in minor units.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// String formats the amount as a plain decimal, e.g. "-12.50".
func (m Money) String() string {
	return FromMinorUnits(m.Cents).StringFixed(2)
}
