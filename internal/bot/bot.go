// Package bot runs the trading cycle: fetch candles, derive a signal,
// gate it through the position state machine, size and execute the
// order. One bot instance owns one pair.
package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarques/ciclo/internal/domain"
	"github.com/dmarques/ciclo/internal/indicators"
	"github.com/dmarques/ciclo/internal/market"
	"github.com/dmarques/ciclo/internal/sizer"
	"github.com/dmarques/ciclo/internal/strategy"
	"github.com/dmarques/ciclo/internal/trader"
)

type candleSource interface {
	Candles(ctx context.Context) ([]domain.MarketCandle, error)
}

type accountSource interface {
	FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	LotStep(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

type orderExecutor interface {
	Execute(ctx context.Context, pair domain.Pair, sig domain.Signal, quantity decimal.Decimal) (*domain.OrderConfirmation, error)
}

type eventJournal interface {
	Append(event domain.Event) error
}

// TradingBot drives the trading cycle for a single pair. All state it
// mutates lives in the position; cycles for one pair never overlap.
type TradingBot struct {
	pair     domain.Pair
	rule     strategy.Rule
	sizer    sizer.Sizer
	candles  candleSource
	account  accountSource
	executor orderExecutor
	journal  eventJournal
	logger   *zap.Logger

	pollInterval time.Duration
	fetchBackoff time.Duration

	position *domain.Position
	lotStep  decimal.Decimal
}

// New creates a trading bot for the pair. The position starts flat.
func New(
	logger *zap.Logger,
	pair domain.Pair,
	rule strategy.Rule,
	szr sizer.Sizer,
	candles candleSource,
	account accountSource,
	executor orderExecutor,
	journal eventJournal,
	pollInterval, fetchBackoff time.Duration,
) *TradingBot {
	return &TradingBot{
		pair:         pair,
		rule:         rule,
		sizer:        szr,
		candles:      candles,
		account:      account,
		executor:     executor,
		journal:      journal,
		logger:       logger.With(zap.String("pair", pair.String())),
		pollInterval: pollInterval,
		fetchBackoff: fetchBackoff,
		position:     domain.NewPosition(pair),
	}
}

// Position returns the position tracked by this bot.
func (b *TradingBot) Position() *domain.Position {
	return b.position
}

// Run executes trading cycles until ctx is cancelled. A failure in one
// cycle never stops the loop: it is logged, the remaining work for the
// cycle is skipped and the next cycle starts after the sleep. Fetch
// failures shorten the sleep so a degraded upstream is re-probed sooner
// without hot-looping.
func (b *TradingBot) Run(ctx context.Context) error {
	b.initLotStep(ctx)

	b.logger.Info("starting trading loop",
		zap.Duration("poll_interval", b.pollInterval),
		zap.Duration("fetch_backoff", b.fetchBackoff))

	for {
		wait := b.pollInterval
		if err := b.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				b.logger.Info("stopping trading loop")
				return ctx.Err()
			}
			if errors.Is(err, market.ErrFetch) {
				b.logger.Warn("market data unavailable, backing off", zap.Error(err))
				wait = b.fetchBackoff
			} else {
				b.logger.Error("trading cycle failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			b.logger.Info("stopping trading loop")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// cycle runs one fetch -> indicators -> signal -> size -> execute pass.
func (b *TradingBot) cycle(ctx context.Context) error {
	candles, err := b.candles.Candles(ctx)
	if err != nil {
		return err
	}

	snapshot, err := indicators.Compute(candles)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientHistory) {
			b.logger.Debug("not enough history for indicators, holding", zap.Error(err))
			return nil
		}
		return errors.Wrap(err, "failed to compute indicators")
	}

	sig := b.rule(snapshot)
	b.logDecision(snapshot, sig)
	b.journalDecision(snapshot, sig)

	if sig == domain.SignalHold {
		return nil
	}

	if !b.position.Actionable(sig) {
		b.logger.Info("signal not actionable in current position",
			zap.String("signal", sig.String()),
			zap.String("position", b.position.Snapshot().State.String()))
		return nil
	}

	// read the balance fresh every actionable cycle; an earlier fill may
	// have changed it
	balance, err := b.account.FreeBalance(ctx, b.pair.Quote)
	if err != nil {
		return errors.Wrapf(market.ErrFetch, "%s balance: %v", b.pair.Quote, err)
	}

	sized := b.sizer.Size(balance, snapshot.Close, b.lotStep)
	if sized.Skip != sizer.SkipNone {
		b.logger.Info("skipping order",
			zap.String("signal", sig.String()),
			zap.String("reason", sized.Skip.String()),
			zap.String("balance", balance.String()))
		return nil
	}

	confirmation, err := b.executor.Execute(ctx, b.pair, sig, sized.Quantity)
	if err != nil {
		// already logged and journaled by the executor; position unchanged
		if trader.IsInsufficientFunds(err) {
			b.logger.Warn("account cannot cover the order, waiting for next cycle",
				zap.String("balance", balance.String()))
		}
		return errors.Wrap(err, "order execution failed")
	}

	if err := b.position.ApplyFill(sig, confirmation.Quantity, confirmation.Price, confirmation.ExecutedAt); err != nil {
		return errors.Wrap(err, "failed to apply fill to position")
	}

	b.logger.Info("position updated",
		zap.String("state", b.position.Snapshot().State.String()),
		zap.String("quantity", confirmation.Quantity.String()),
		zap.String("price", confirmation.Price.String()))

	return nil
}

func (b *TradingBot) initLotStep(ctx context.Context) {
	step, err := b.account.LotStep(ctx, b.pair)
	if err != nil {
		b.logger.Warn("lot step unavailable, falling back to fixed precision", zap.Error(err))
		return
	}
	b.lotStep = step
}

func (b *TradingBot) logDecision(snapshot domain.IndicatorSnapshot, sig domain.Signal) {
	fields := []zap.Field{
		zap.String("signal", sig.String()),
		zap.String("close", snapshot.Close.String()),
	}
	if snapshot.HasRSI {
		fields = append(fields, zap.String("rsi14", snapshot.RSI14.StringFixed(2)))
	}
	if snapshot.HasBands {
		fields = append(fields,
			zap.String("bb_high", snapshot.BBHigh.StringFixed(2)),
			zap.String("bb_low", snapshot.BBLow.StringFixed(2)))
	}
	if snapshot.HasMACD {
		fields = append(fields,
			zap.String("macd", snapshot.MACD.StringFixed(4)),
			zap.String("macd_signal", snapshot.MACDSignal.StringFixed(4)))
	}
	b.logger.Info("decision", fields...)
}

func (b *TradingBot) journalDecision(snapshot domain.IndicatorSnapshot, sig domain.Signal) {
	if b.journal == nil {
		return
	}

	event := domain.Event{
		Kind:      domain.EventDecision,
		Timestamp: time.Now().UTC(),
		Pair:      b.pair.String(),
		Signal:    sig.String(),
		Close:     snapshot.Close.String(),
	}
	if snapshot.HasRSI {
		event.RSI14 = snapshot.RSI14.StringFixed(2)
	}
	if snapshot.HasBands {
		event.BBHigh = snapshot.BBHigh.StringFixed(2)
		event.BBLow = snapshot.BBLow.StringFixed(2)
	}
	if snapshot.HasMACD {
		event.MACD = snapshot.MACD.StringFixed(4)
		event.MACDSignal = snapshot.MACDSignal.StringFixed(4)
	}

	if err := b.journal.Append(event); err != nil {
		b.logger.Warn("failed to journal decision", zap.Error(err))
	}
}
