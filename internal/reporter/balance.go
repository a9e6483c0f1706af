package reporter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarques/ciclo/internal/domain"
)

const defaultInterval = time.Hour

// balanceSource is the slice of the exchange the reporter needs.
type balanceSource interface {
	FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	LastPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

type eventJournal interface {
	Append(event domain.Event) error
}

// BalanceReporter periodically snapshots the free balances of a pair,
// values the base leg at the last price and journals the result. It runs
// on its own cadence, independent of the trading cycle.
type BalanceReporter struct {
	logger   *zap.Logger
	pair     domain.Pair
	exchange balanceSource
	journal  eventJournal
	interval time.Duration
}

// New creates a reporter for the pair. A nil journal disables persistence,
// snapshots are still logged.
func New(logger *zap.Logger, pair domain.Pair, exchange balanceSource, journal eventJournal, interval time.Duration) *BalanceReporter {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &BalanceReporter{
		logger:   logger.With(zap.String("pair", pair.String())),
		pair:     pair,
		exchange: exchange,
		journal:  journal,
		interval: interval,
	}
}

// Run reports once immediately, then on every tick until the context is
// cancelled. Snapshot failures are logged and the loop keeps going.
func (r *BalanceReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.report(ctx); err != nil {
		r.logger.Warn("balance snapshot failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.report(ctx); err != nil {
				r.logger.Warn("balance snapshot failed", zap.Error(err))
			}
		}
	}
}

func (r *BalanceReporter) report(ctx context.Context) error {
	baseFree, err := r.exchange.FreeBalance(ctx, r.pair.Base)
	if err != nil {
		return errors.Wrapf(err, "get %s balance", r.pair.Base)
	}

	quoteFree, err := r.exchange.FreeBalance(ctx, r.pair.Quote)
	if err != nil {
		return errors.Wrapf(err, "get %s balance", r.pair.Quote)
	}

	price, err := r.exchange.LastPrice(ctx, r.pair)
	if err != nil {
		return errors.Wrapf(err, "get %s price", r.pair.String())
	}

	total := quoteFree.Add(baseFree.Mul(price))

	r.logger.Info("balance snapshot",
		zap.String("base_free", baseFree.String()),
		zap.String("quote_free", quoteFree.String()),
		zap.String("price", price.String()),
		zap.String("total_quote", total.String()))

	if r.journal == nil {
		return nil
	}

	event := domain.Event{
		Kind:       domain.EventBalance,
		Timestamp:  time.Now().UTC(),
		Pair:       r.pair.String(),
		Price:      price.String(),
		BaseFree:   baseFree.String(),
		QuoteFree:  quoteFree.String(),
		TotalQuote: total.String(),
	}
	if err := r.journal.Append(event); err != nil {
		return errors.Wrap(err, "journal balance snapshot")
	}
	return nil
}
