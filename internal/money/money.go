// Package money holds amount arithmetic and formatting. Amounts are int64 in
// the smallest currency unit (halalas for SAR); all rounding goes through
// shopspring/decimal so display, discount math and wire formats agree.
package money

import "github.com/shopspring/decimal"

// Percent returns amount × pct / 100 rounded half away from zero, which for
// non-negative amounts is round-half-up.
func Percent(amount, pct int64) int64 {
	v := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return v.IntPart()
}

// Major converts a minor-unit amount to the major unit (e.g. 4999 → 49.99).
func Major(minor int64) decimal.Decimal { return decimal.New(minor, -2) }

// MajorFloat is Major as a float64 for JSON wire formats that expect numbers.
func MajorFloat(minor int64) float64 {
	f, _ := Major(minor).Float64()
	return f
}

// Format renders a minor-unit amount for customers: two decimals, trailing
// ".00" dropped (4999 → "49.99", 5000 → "50").
func Format(minor int64) string {
	d := Major(minor)
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}
