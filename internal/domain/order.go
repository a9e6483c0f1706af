package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side of a market order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// String returns the string representation of the side.
func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// OrderConfirmation is the exchange's acknowledgement of a filled market
// order. It is the only feedback used to mutate position state.
type OrderConfirmation struct {
	OrderID    string
	Pair       Pair
	Side       Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	ExecutedAt time.Time
}
