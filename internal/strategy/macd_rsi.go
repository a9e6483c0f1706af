package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/dmarques/ciclo/internal/domain"
)

// MACDRSI confirms RSI extremes with the MACD histogram sign: buy on
// oversold RSI while momentum turns positive, sell on overbought RSI
// while momentum turns negative.
func MACDRSI(snapshot domain.IndicatorSnapshot) domain.Signal {
	if !snapshot.HasRSI || !snapshot.HasMACD {
		return domain.SignalHold
	}

	oversold := decimal.NewFromInt(rsiOversold)
	overbought := decimal.NewFromInt(rsiOverbought)
	diff := snapshot.MACDDiff()

	switch {
	case snapshot.RSI14.LessThan(oversold) && diff.GreaterThan(decimal.Zero):
		return domain.SignalBuy
	case snapshot.RSI14.GreaterThan(overbought) && diff.LessThan(decimal.Zero):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
