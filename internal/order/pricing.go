package order

import (
	"github.com/shopspring/decimal"
)

var (
	// DefaultDeliveryFee is charged once per non-empty cart.
	DefaultDeliveryFee = decimal.RequireFromString("3.50")

	// DefaultTolerance is the largest accepted difference between a claimed
	// total and the recomputed one.
	DefaultTolerance = decimal.New(1, -2)
)

// Totals are the derived money values of a set of lines.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Subtotal returns Σ price×quantity rounded to cents.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Round(2)
}

// Quote computes subtotal, fee and total. The fee applies only when lines is
// non-empty; an empty set of lines totals zero.
func Quote(lines []Line, fee decimal.Decimal) Totals {
	if len(lines) == 0 {
		return Totals{Subtotal: decimal.Zero, DeliveryFee: decimal.Zero, Total: decimal.Zero}
	}
	sub := Subtotal(lines)
	return Totals{
		Subtotal:    sub,
		DeliveryFee: fee,
		Total:       sub.Add(fee).Round(2),
	}
}

// WithinTolerance reports whether |claimed - expected| <= tolerance.
func WithinTolerance(claimed float64, expected, tolerance decimal.Decimal) bool {
	return decimal.NewFromFloat(claimed).Sub(expected).Abs().LessThanOrEqual(tolerance)
}

// RoundCents rounds v to two decimal places.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
