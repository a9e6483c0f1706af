package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dmarques/ciclo/internal/domain"
)

// Binance API error codes that map onto typed failures.
const (
	binanceCodeNewOrderRejected   = -2010
	binanceCodeInsufficientFunds  = -2019
	binanceCodeFilterFailure      = -1013
	insufficientBalanceErrMessage = "insufficient balance"
)

// BinanceExchange implements Exchange over Binance spot.
type BinanceExchange struct {
	client *binance.Client
}

// NewBinanceExchange creates a Binance-backed exchange. When testnet is
// set, all requests go to the Binance spot testnet.
func NewBinanceExchange(apiKey, apiSecret string, testnet bool) *BinanceExchange {
	binance.UseTestnet = testnet
	return &BinanceExchange{client: binance.NewClient(apiKey, apiSecret)}
}

// RecentCandles fetches kline data from Binance.
func (e *BinanceExchange) RecentCandles(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	klines, err := e.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	result := make([]domain.MarketCandle, len(klines))
	for i, k := range klines {
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

		result[i] = domain.MarketCandle{
			OpenTime:  time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: time.Unix(0, k.CloseTime*int64(time.Millisecond)),
		}
	}

	return result, nil
}

// FreeBalance returns the free spot balance of the asset.
func (e *BinanceExchange) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	account, err := e.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get binance account balance")
	}

	for _, balance := range account.Balances {
		if balance.Asset == asset {
			free, err := decimal.NewFromString(balance.Free)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse balance")
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}

// SubmitMarketOrder places a spot market order.
func (e *BinanceExchange) SubmitMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, quantity decimal.Decimal) (*domain.OrderConfirmation, error) {
	sideType := binance.SideTypeBuy
	if side == domain.SideSell {
		sideType = binance.SideTypeSell
	}

	resp, err := e.client.NewCreateOrderService().
		Symbol(pair.Symbol()).
		Side(sideType).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String()).
		Do(ctx)
	if err != nil {
		return nil, classifyBinanceOrderError(err)
	}

	executed, parseErr := decimal.NewFromString(resp.ExecutedQuantity)
	if parseErr != nil {
		executed = quantity
	}

	price := decimal.Zero
	if quoteSpent, parseErr := decimal.NewFromString(resp.CummulativeQuoteQuantity); parseErr == nil &&
		executed.GreaterThan(decimal.Zero) && quoteSpent.GreaterThan(decimal.Zero) {
		price = quoteSpent.Div(executed)
	} else if len(resp.Fills) > 0 {
		if fillPrice, parseErr := decimal.NewFromString(resp.Fills[0].Price); parseErr == nil {
			price = fillPrice
		}
	}

	return &domain.OrderConfirmation{
		OrderID:    strconv.FormatInt(resp.OrderID, 10),
		Pair:       pair,
		Side:       side,
		Quantity:   executed,
		Price:      price,
		ExecutedAt: time.Unix(0, resp.TransactTime*int64(time.Millisecond)),
	}, nil
}

// LotStep reads the LOT_SIZE filter step from exchange info.
func (e *BinanceExchange) LotStep(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	info, err := e.client.NewExchangeInfoService().Symbols(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to fetch exchange info for %s", pair.String())
	}

	for _, symbol := range info.Symbols {
		if symbol.Symbol != pair.Symbol() {
			continue
		}
		filter := symbol.LotSizeFilter()
		if filter == nil {
			return decimal.Zero, nil
		}
		step, err := decimal.NewFromString(filter.StepSize)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "failed to parse lot step size")
		}
		return step, nil
	}

	return decimal.Zero, nil
}

// LastPrice returns the last traded price from the ticker.
func (e *BinanceExchange) LastPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := e.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to fetch binance price for %s", pair.String())
	}
	if len(prices) == 0 {
		return decimal.Zero, errors.Errorf("binance returned no price for %s", pair.String())
	}
	return decimal.NewFromString(prices[0].Price)
}

func classifyBinanceOrderError(err error) error {
	apiErr, ok := err.(*common.APIError)
	if !ok {
		return errors.Wrap(err, "failed to submit binance order")
	}

	switch apiErr.Code {
	case binanceCodeInsufficientFunds:
		return errors.Wrap(ErrInsufficientFunds, apiErr.Message)
	case binanceCodeNewOrderRejected:
		// -2010 covers both rejection and insufficient balance; message disambiguates
		if containsFold(apiErr.Message, insufficientBalanceErrMessage) {
			return errors.Wrap(ErrInsufficientFunds, apiErr.Message)
		}
		return errors.Wrap(ErrOrderRejected, apiErr.Message)
	case binanceCodeFilterFailure:
		return errors.Wrap(ErrOrderRejected, apiErr.Message)
	default:
		return errors.Wrap(err, "failed to submit binance order")
	}
}
