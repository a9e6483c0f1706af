package trader

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmarques/ciclo/internal/domain"
	"github.com/dmarques/ciclo/internal/exchange"
)

type fakeSubmitter struct {
	confirmation *domain.OrderConfirmation
	err          error
	calls        int
}

func (f *fakeSubmitter) SubmitMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, quantity decimal.Decimal) (*domain.OrderConfirmation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.confirmation, nil
}

type fakeJournal struct {
	events []domain.Event
}

func (f *fakeJournal) Append(event domain.Event) error {
	f.events = append(f.events, event)
	return nil
}

var testPair = domain.Pair{Base: "BTC", Quote: "USDT"}

func TestExecuteSuccessJournalsFill(t *testing.T) {
	confirmation := &domain.OrderConfirmation{
		OrderID:    "42",
		Pair:       testPair,
		Side:       domain.SideBuy,
		Quantity:   decimal.NewFromFloat(0.0002),
		Price:      decimal.NewFromInt(50000),
		ExecutedAt: time.Now(),
	}
	submitter := &fakeSubmitter{confirmation: confirmation}
	journal := &fakeJournal{}
	executor := NewExecutor(submitter, journal, zap.NewNop())

	got, err := executor.Execute(context.Background(), testPair, domain.SignalBuy, decimal.NewFromFloat(0.0002))
	require.NoError(t, err)
	assert.Equal(t, confirmation, got)

	require.Len(t, journal.events, 1)
	assert.Equal(t, domain.EventOrder, journal.events[0].Kind)
	assert.Equal(t, "filled", journal.events[0].Status)
	assert.Equal(t, "BUY", journal.events[0].Side)
}

func TestExecuteFailureJournalsError(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.Wrap(exchange.ErrInsufficientFunds, "account has 5 USDT")}
	journal := &fakeJournal{}
	executor := NewExecutor(submitter, journal, zap.NewNop())

	_, err := executor.Execute(context.Background(), testPair, domain.SignalBuy, decimal.NewFromFloat(0.0002))
	require.Error(t, err)
	assert.True(t, IsInsufficientFunds(err))

	require.Len(t, journal.events, 1)
	assert.Equal(t, "failed", journal.events[0].Status)
	assert.NotEmpty(t, journal.events[0].Error)
}

func TestExecuteRejectsNonPositiveQuantity(t *testing.T) {
	submitter := &fakeSubmitter{}
	executor := NewExecutor(submitter, &fakeJournal{}, zap.NewNop())

	_, err := executor.Execute(context.Background(), testPair, domain.SignalBuy, decimal.Zero)
	assert.Error(t, err)
	assert.Zero(t, submitter.calls)
}

func TestExecuteRejectsHoldSignal(t *testing.T) {
	submitter := &fakeSubmitter{}
	executor := NewExecutor(submitter, &fakeJournal{}, zap.NewNop())

	_, err := executor.Execute(context.Background(), testPair, domain.SignalHold, decimal.NewFromInt(1))
	assert.Error(t, err)
	assert.Zero(t, submitter.calls)
}

func TestExecuteSellSide(t *testing.T) {
	confirmation := &domain.OrderConfirmation{
		Pair:     testPair,
		Side:     domain.SideSell,
		Quantity: decimal.NewFromFloat(0.0002),
		Price:    decimal.NewFromInt(51000),
	}
	submitter := &fakeSubmitter{confirmation: confirmation}
	journal := &fakeJournal{}
	executor := NewExecutor(submitter, journal, zap.NewNop())

	_, err := executor.Execute(context.Background(), testPair, domain.SignalSell, decimal.NewFromFloat(0.0002))
	require.NoError(t, err)

	require.Len(t, journal.events, 1)
	assert.Equal(t, "SELL", journal.events[0].Side)
}
