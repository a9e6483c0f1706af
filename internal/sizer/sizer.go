// Package sizer computes market-order quantities from the free quote
// balance under an allocation fraction and exchange lot constraints.
package sizer

import "github.com/shopspring/decimal"

// fallbackPrecision is used when the venue exposes no lot step.
const fallbackPrecision = 6

// SkipReason explains why no order quantity was produced.
type SkipReason int

const (
	SkipNone SkipReason = iota
	// SkipLowBalance means the free quote balance is below the minimum
	// operating threshold.
	SkipLowBalance
	// SkipBadPrice means the reference price was zero or negative.
	SkipBadPrice
	// SkipDust means the allocation floors to zero at the lot step.
	SkipDust
)

// String returns the string representation of the reason.
func (r SkipReason) String() string {
	switch r {
	case SkipLowBalance:
		return "balance below minimum"
	case SkipBadPrice:
		return "non-positive price"
	case SkipDust:
		return "quantity floors to zero"
	default:
		return "none"
	}
}

// Sized is the sizing outcome: either a positive quantity or a skip
// reason, never both.
type Sized struct {
	Quantity decimal.Decimal
	Skip     SkipReason
}

// Sizer derives order quantities. Fraction is the share of the free
// quote balance allocated per order (e.g. 0.10); MinQuote is the
// minimum free balance required to trade at all.
type Sizer struct {
	Fraction decimal.Decimal
	MinQuote decimal.Decimal
}

// New creates a Sizer.
func New(fraction, minQuote decimal.Decimal) Sizer {
	return Sizer{Fraction: fraction, MinQuote: minQuote}
}

// Size computes the order quantity for the given free balance, price and
// lot step. Quantities are always rounded down, so the quote spent never
// exceeds balance * fraction. A zero step falls back to rounding down to
// a fixed precision.
func (s Sizer) Size(balance, price, step decimal.Decimal) Sized {
	if price.LessThanOrEqual(decimal.Zero) {
		return Sized{Skip: SkipBadPrice}
	}
	if balance.LessThan(s.MinQuote) {
		return Sized{Skip: SkipLowBalance}
	}

	quantity := balance.Mul(s.Fraction).Div(price)
	if step.GreaterThan(decimal.Zero) {
		quantity = quantity.Div(step).Floor().Mul(step)
	} else {
		quantity = quantity.RoundFloor(fallbackPrecision)
	}

	if quantity.LessThanOrEqual(decimal.Zero) {
		return Sized{Skip: SkipDust}
	}
	return Sized{Quantity: quantity}
}
