// Package exchange abstracts the trading venue behind a small capability
// interface so the rest of the bot never talks to an SDK directly.
package exchange

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dmarques/ciclo/internal/domain"
)

var (
	// ErrInsufficientFunds is returned when the venue rejects an order
	// because the account cannot cover it.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrOrderRejected is returned when the venue refuses an order for
	// any other reason (bad lot size, closed market, filters).
	ErrOrderRejected = errors.New("order rejected")
)

// Exchange is the venue capability consumed by the bot. Implementations
// wrap a concrete SDK client; auth and rate limiting live inside them.
type Exchange interface {
	// RecentCandles fetches up to limit most recent OHLCV candles for the
	// pair at the given interval (e.g. "5m"), oldest first.
	RecentCandles(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error)
	// FreeBalance returns the free (unlocked) balance of the asset.
	FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	// SubmitMarketOrder places a market order and returns its fill
	// confirmation. Order failures map onto ErrInsufficientFunds or
	// ErrOrderRejected where the venue reports a cause.
	SubmitMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, quantity decimal.Decimal) (*domain.OrderConfirmation, error)
	// LotStep returns the minimum tradable quantity increment for the
	// pair, or zero when the venue does not expose one.
	LotStep(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	// LastPrice returns the last traded price for the pair.
	LastPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}
