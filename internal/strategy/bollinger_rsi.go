package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/dmarques/ciclo/internal/domain"
)

// BollingerRSI buys when price closes below the lower Bollinger band
// while RSI signals oversold, and sells when price closes above the
// upper band while RSI signals overbought. Anything else holds.
func BollingerRSI(snapshot domain.IndicatorSnapshot) domain.Signal {
	if !snapshot.HasBands || !snapshot.HasRSI {
		return domain.SignalHold
	}

	oversold := decimal.NewFromInt(rsiOversold)
	overbought := decimal.NewFromInt(rsiOverbought)

	switch {
	case snapshot.Close.LessThan(snapshot.BBLow) && snapshot.RSI14.LessThan(oversold):
		return domain.SignalBuy
	case snapshot.Close.GreaterThan(snapshot.BBHigh) && snapshot.RSI14.GreaterThan(overbought):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
