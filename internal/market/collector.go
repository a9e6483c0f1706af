// Package market fetches and validates candle series from the exchange.
package market

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dmarques/ciclo/internal/domain"
	"github.com/dmarques/ciclo/pkg/retrier"
)

// ErrFetch marks recoverable market data failures. The scheduler backs
// off with a shorter sleep when a cycle fails with it.
var ErrFetch = errors.New("market data fetch failed")

type candleProvider interface {
	RecentCandles(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error)
}

// Collector fetches recent candles for one pair with bounded retries.
type Collector struct {
	provider candleProvider
	pair     domain.Pair
	interval string
	limit    int
	retrier  *retrier.Retrier
}

// NewCollector creates a collector for the pair.
func NewCollector(provider candleProvider, pair domain.Pair, interval string, limit int) *Collector {
	return &Collector{
		provider: provider,
		pair:     pair,
		interval: interval,
		limit:    limit,
		retrier:  retrier.New(),
	}
}

// Candles fetches the recent candle series, oldest first. Transient
// provider failures are retried; persistent failures and malformed
// series are reported as ErrFetch.
func (c *Collector) Candles(ctx context.Context) ([]domain.MarketCandle, error) {
	candles, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]domain.MarketCandle, error) {
		return c.provider.RecentCandles(ctx, c.pair, c.interval, c.limit)
	})
	if err != nil {
		return nil, errors.Wrapf(ErrFetch, "%s: %v", c.pair.String(), err)
	}

	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrFetch, "%s: empty candle series", c.pair.String())
	}
	if err := domain.ValidateCandles(candles); err != nil {
		return nil, errors.Wrapf(ErrFetch, "%s: %v", c.pair.String(), err)
	}

	return candles, nil
}
