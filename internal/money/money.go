// Package money adapts shopspring decimals for monetary arithmetic.
//
// Amounts stay decimal.Decimal from the database through every computation and
// are converted to float64 only when a response is rendered.
package money

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Sum adds values exactly.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Percent returns part/whole*100 without rounding, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}

// CappedPercent is Percent clamped to 100.
func CappedPercent(part, whole decimal.Decimal) decimal.Decimal {
	return decimal.Min(Percent(part, whole), hundred)
}

// ToFloat converts d for display.
func ToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// Round rounds d half away from zero to places and converts it for display.
func Round(d decimal.Decimal, places int32) float64 {
	return d.Round(places).InexactFloat64()
}

// FromFloat builds a decimal from a float64, keeping at most two fractional digits.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// Format renders d with exactly places fractional digits.
func Format(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
