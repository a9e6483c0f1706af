package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MarketCandle single OHLCV candlestick.
type MarketCandle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// ValidateCandles checks that the series is usable for indicator math:
// chronological with strictly increasing open times and positive closes.
func ValidateCandles(candles []MarketCandle) error {
	for i, c := range candles {
		if c.Close.LessThanOrEqual(decimal.Zero) {
			return errors.Errorf("candle %d has non-positive close %s", i, c.Close.String())
		}
		if i > 0 && !candles[i-1].OpenTime.Before(c.OpenTime) {
			return errors.Errorf("candle %d open time %s is not after previous %s",
				i, c.OpenTime.Format(time.RFC3339), candles[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}
