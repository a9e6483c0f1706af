// Package trader submits market orders and records the outcome of every
// attempt in the log and the journal.
package trader

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarques/ciclo/internal/domain"
	"github.com/dmarques/ciclo/internal/exchange"
)

type orderSubmitter interface {
	SubmitMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, quantity decimal.Decimal) (*domain.OrderConfirmation, error)
}

type eventJournal interface {
	Append(event domain.Event) error
}

// Executor places market orders through the exchange. It never mutates
// position state; callers apply the transition only on success.
type Executor struct {
	exchange orderSubmitter
	journal  eventJournal
	logger   *zap.Logger
}

// NewExecutor creates an order executor.
func NewExecutor(ex orderSubmitter, journal eventJournal, logger *zap.Logger) *Executor {
	return &Executor{exchange: ex, journal: journal, logger: logger}
}

// Execute submits a market order for the signal. Every attempt, success
// or failure, is logged and journaled — this is the audit trail.
func (e *Executor) Execute(ctx context.Context, pair domain.Pair, sig domain.Signal, quantity decimal.Decimal) (*domain.OrderConfirmation, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Errorf("order quantity must be positive, got %s", quantity.String())
	}

	var side domain.Side
	switch sig {
	case domain.SignalBuy:
		side = domain.SideBuy
	case domain.SignalSell:
		side = domain.SideSell
	default:
		return nil, errors.New("hold signal is not executable")
	}

	confirmation, err := e.exchange.SubmitMarketOrder(ctx, pair, side, quantity)
	if err != nil {
		e.logger.Error("order failed",
			zap.String("pair", pair.String()),
			zap.String("side", side.String()),
			zap.String("quantity", quantity.String()),
			zap.Error(err))
		e.appendOrderEvent(pair, side, quantity, decimal.Zero, "failed", err)
		return nil, errors.Wrapf(err, "failed to execute %s %s", side.String(), pair.String())
	}

	e.logger.Info("order filled",
		zap.String("pair", pair.String()),
		zap.String("side", side.String()),
		zap.String("quantity", confirmation.Quantity.String()),
		zap.String("price", confirmation.Price.String()),
		zap.String("order_id", confirmation.OrderID))
	e.appendOrderEvent(pair, side, confirmation.Quantity, confirmation.Price, "filled", nil)

	return confirmation, nil
}

func (e *Executor) appendOrderEvent(pair domain.Pair, side domain.Side, quantity, price decimal.Decimal, status string, orderErr error) {
	if e.journal == nil {
		return
	}

	event := domain.Event{
		Kind:      domain.EventOrder,
		Timestamp: time.Now().UTC(),
		Pair:      pair.String(),
		Side:      side.String(),
		Quantity:  quantity.String(),
		Status:    status,
	}
	if price.GreaterThan(decimal.Zero) {
		event.Price = price.String()
	}
	if orderErr != nil {
		event.Error = orderErr.Error()
	}

	if err := e.journal.Append(event); err != nil {
		e.logger.Warn("failed to journal order event", zap.Error(err))
	}
}

// IsInsufficientFunds reports whether the order failed because the
// account could not cover it.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, exchange.ErrInsufficientFunds)
}
