package exchange

import (
	"context"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dmarques/ciclo/internal/domain"
)

// BybitExchange implements Exchange over Bybit V5 spot.
type BybitExchange struct {
	client *bybit.Client
}

// NewBybitExchange creates a Bybit-backed exchange.
func NewBybitExchange(apiKey, apiSecret string, testnet bool) *BybitExchange {
	client := bybit.NewClient()
	if testnet {
		client = client.WithBaseURL(bybit.TestNetBaseURL)
	}
	return &BybitExchange{client: client.WithAuth(apiKey, apiSecret)}
}

// RecentCandles fetches kline data from Bybit.
func (e *BybitExchange) RecentCandles(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	bybitInterval, err := toBybitInterval(interval)
	if err != nil {
		return nil, err
	}

	result, err := e.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		Interval: bybit.Interval(bybitInterval),
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
	}
	if result == nil || len(result.Result.List) == 0 {
		return nil, errors.Errorf("no kline data returned from Bybit for %s", pair.String())
	}

	list := result.Result.List
	candles := make([]domain.MarketCandle, len(list))
	// Bybit returns newest first; store oldest first
	for i, k := range list {
		openTime, err := parseMillisTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		candles[len(list)-1-i] = domain.MarketCandle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: openTime,
		}
	}

	return candles, nil
}

// FreeBalance returns the unified account wallet balance of the asset.
func (e *BybitExchange) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	res, err := e.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get bybit wallet balance")
	}
	if len(res.Result.List) == 0 {
		return decimal.Zero, nil
	}

	for _, coin := range res.Result.List[0].Coin {
		if string(coin.Coin) == asset {
			free, err := decimal.NewFromString(coin.WalletBalance)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse bybit balance")
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}

// SubmitMarketOrder places a spot market order.
func (e *BybitExchange) SubmitMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, quantity decimal.Decimal) (*domain.OrderConfirmation, error) {
	orderSide := bybit.SideBuy
	if side == domain.SideSell {
		orderSide = bybit.SideSell
	}

	resp, err := e.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:  bybit.CategoryV5Spot,
		Symbol:    bybit.SymbolV5(pair.Symbol()),
		Side:      orderSide,
		OrderType: bybit.OrderTypeMarket,
		Qty:       quantity.String(),
	})
	if err != nil {
		return nil, errors.Wrap(ErrOrderRejected, err.Error())
	}

	// Bybit does not echo the fill price; read the ticker for the audit trail
	price, err := e.LastPrice(ctx, pair)
	if err != nil {
		price = decimal.Zero
	}

	return &domain.OrderConfirmation{
		OrderID:    resp.Result.OrderID,
		Pair:       pair,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: time.Now(),
	}, nil
}

// LotStep reads the base precision from the spot instrument info.
func (e *BybitExchange) LotStep(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(pair.Symbol())
	res, err := e.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to fetch bybit instrument info for %s", pair.String())
	}
	if len(res.Result.Spot.List) == 0 {
		return decimal.Zero, nil
	}

	step, err := decimal.NewFromString(res.Result.Spot.List[0].LotSizeFilter.BasePrecision)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to parse bybit base precision")
	}
	return step, nil
}

// LastPrice returns the last traded price from the spot ticker.
func (e *BybitExchange) LastPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(pair.Symbol())
	result, err := e.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to fetch bybit price for %s", pair.String())
	}
	if len(result.Result.Spot.List) == 0 {
		return decimal.Zero, errors.Errorf("bybit returned no price for %s", pair.String())
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}

func toBybitInterval(interval string) (string, error) {
	switch interval {
	case "1m":
		return "1", nil
	case "3m":
		return "3", nil
	case "5m":
		return "5", nil
	case "15m":
		return "15", nil
	case "30m":
		return "30", nil
	case "1h":
		return "60", nil
	case "2h":
		return "120", nil
	case "4h":
		return "240", nil
	case "1d":
		return "D", nil
	case "1w":
		return "W", nil
	default:
		return "", errors.Errorf("unsupported interval %q for bybit", interval)
	}
}

func parseMillisTimestamp(raw string) (time.Time, error) {
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, millis*int64(time.Millisecond)), nil
}
