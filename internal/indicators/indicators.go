// Package indicators derives technical indicator values (SMA, EMA, RSI,
// Bollinger Bands, MACD) from a candle series using the cinar/indicator
// library. Computation is pure and stateless per call.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dmarques/ciclo/internal/domain"
)

const (
	maPeriod  = 20
	rsiPeriod = 14

	// MACD(12,26,9) is the slowest indicator in the set; below this many
	// candles no full snapshot can be produced.
	minCandles = 35
)

// ErrInsufficientHistory is returned when the candle series is too short
// to fill the indicator warmup windows. Callers treat it as HOLD.
var ErrInsufficientHistory = errors.New("not enough candles to compute indicators")

// Compute derives an indicator snapshot from the most recent candle of
// the series. The series must be chronological, oldest first.
func Compute(candles []domain.MarketCandle) (domain.IndicatorSnapshot, error) {
	if len(candles) < minCandles {
		return domain.IndicatorSnapshot{}, errors.Wrapf(ErrInsufficientHistory,
			"need %d candles, got %d", minCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}

	snapshot := domain.IndicatorSnapshot{
		Close: candles[len(candles)-1].Close,
	}

	sma := lastFinite(computeSMA(closes))
	ema := lastFinite(computeEMA(closes))
	if sma != nil && ema != nil {
		snapshot.SMA20 = decimal.NewFromFloat(*sma)
		snapshot.EMA20 = decimal.NewFromFloat(*ema)
		snapshot.HasMA = true
	}

	if rsi := lastFinite(computeRSI(closes)); rsi != nil {
		snapshot.RSI14 = decimal.NewFromFloat(*rsi)
		snapshot.HasRSI = true
	}

	upper, lower := computeBollinger(closes)
	if hi, lo := lastFinite(upper), lastFinite(lower); hi != nil && lo != nil {
		snapshot.BBHigh = decimal.NewFromFloat(*hi)
		snapshot.BBLow = decimal.NewFromFloat(*lo)
		snapshot.HasBands = true
	}

	macdLine, signalLine := computeMACD(closes)
	if m, s := lastFinite(macdLine), lastFinite(signalLine); m != nil && s != nil {
		snapshot.MACD = decimal.NewFromFloat(*m)
		snapshot.MACDSignal = decimal.NewFromFloat(*s)
		snapshot.HasMACD = true
	}

	return snapshot, nil
}

func computeSMA(closes []float64) []float64 {
	sma := trend.NewSmaWithPeriod[float64](maPeriod)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
}

func computeEMA(closes []float64) []float64 {
	ema := trend.NewEmaWithPeriod[float64](maPeriod)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes)))
}

func computeRSI(closes []float64) []float64 {
	rsi := momentum.NewRsiWithPeriod[float64](rsiPeriod)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
}

// computeBollinger returns the upper and lower bands (period 20, 2 std devs).
func computeBollinger(closes []float64) ([]float64, []float64) {
	bb := volatility.NewBollingerBands[float64]()
	upperChan, middleChan, lowerChan := bb.Compute(helper.SliceToChan(closes))

	// drain the middle band concurrently to keep the pipeline moving
	go func() {
		for range middleChan {
		}
	}()

	var lower []float64
	done := make(chan struct{})
	go func() {
		lower = helper.ChanToSlice(lowerChan)
		close(done)
	}()

	upper := helper.ChanToSlice(upperChan)
	<-done
	return upper, lower
}

// computeMACD returns the MACD line and its signal line.
func computeMACD(closes []float64) ([]float64, []float64) {
	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(closes))

	var signal []float64
	done := make(chan struct{})
	go func() {
		signal = helper.ChanToSlice(signalChan)
		close(done)
	}()

	line := helper.ChanToSlice(macdChan)
	<-done
	return line, signal
}

// lastFinite returns the most recent value of the series, or nil when
// the series is empty or the value is not a finite number (e.g. RSI on
// a perfectly flat market).
func lastFinite(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
