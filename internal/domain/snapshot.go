package domain

import "github.com/shopspring/decimal"

// IndicatorSnapshot holds indicator values derived from the most recent
// candle of a series. Fields are only meaningful when the matching Has*
// flag is set; indicators stay absent until their warmup window is filled.
type IndicatorSnapshot struct {
	Close decimal.Decimal

	SMA20 decimal.Decimal
	EMA20 decimal.Decimal
	HasMA bool

	RSI14  decimal.Decimal
	HasRSI bool

	BBHigh   decimal.Decimal
	BBLow    decimal.Decimal
	HasBands bool

	MACD       decimal.Decimal
	MACDSignal decimal.Decimal
	HasMACD    bool
}

// MACDDiff returns the MACD histogram value (MACD line minus signal line).
func (s IndicatorSnapshot) MACDDiff() decimal.Decimal {
	return s.MACD.Sub(s.MACDSignal)
}
