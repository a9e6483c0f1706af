package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmarques/ciclo/internal/domain"
	"github.com/dmarques/ciclo/internal/exchange"
	"github.com/dmarques/ciclo/internal/market"
	"github.com/dmarques/ciclo/internal/sizer"
)

var testPair = domain.Pair{Base: "BTC", Quote: "USDT"}

type fakeCandles struct {
	mu      sync.Mutex
	errs    []error
	candles []domain.MarketCandle
	calls   int
}

func (f *fakeCandles) Candles(ctx context.Context) ([]domain.MarketCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.candles, nil
}

func (f *fakeCandles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAccount struct {
	balance decimal.Decimal
	step    decimal.Decimal
}

func (f *fakeAccount) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeAccount) LotStep(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return f.step, nil
}

type fakeExecutor struct {
	err   error
	calls int
	last  decimal.Decimal
}

func (f *fakeExecutor) Execute(ctx context.Context, pair domain.Pair, sig domain.Signal, quantity decimal.Decimal) (*domain.OrderConfirmation, error) {
	f.calls++
	f.last = quantity
	if f.err != nil {
		return nil, f.err
	}
	side := domain.SideBuy
	if sig == domain.SignalSell {
		side = domain.SideSell
	}
	return &domain.OrderConfirmation{
		OrderID:    "1",
		Pair:       pair,
		Side:       side,
		Quantity:   quantity,
		Price:      decimal.NewFromInt(50000),
		ExecutedAt: time.Now(),
	}, nil
}

func testCandles(n int) []domain.MarketCandle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.MarketCandle, n)
	for i := range candles {
		candles[i] = domain.MarketCandle{
			OpenTime: start.Add(time.Duration(i) * 5 * time.Minute),
			Close:    decimal.NewFromInt(50000),
		}
	}
	return candles
}

func constantRule(sig domain.Signal) func(domain.IndicatorSnapshot) domain.Signal {
	return func(domain.IndicatorSnapshot) domain.Signal { return sig }
}

func newTestBot(rule func(domain.IndicatorSnapshot) domain.Signal, candles *fakeCandles, account *fakeAccount, executor *fakeExecutor) *TradingBot {
	return New(
		zap.NewNop(),
		testPair,
		rule,
		sizer.New(decimal.NewFromFloat(0.10), decimal.NewFromInt(10)),
		candles,
		account,
		executor,
		nil,
		500*time.Millisecond,
		5*time.Millisecond,
	)
}

func TestCycleSellWhileFlatIsNoOp(t *testing.T) {
	executor := &fakeExecutor{}
	b := newTestBot(constantRule(domain.SignalSell),
		&fakeCandles{candles: testCandles(50)},
		&fakeAccount{balance: decimal.NewFromInt(100)},
		executor)

	require.NoError(t, b.cycle(context.Background()))

	assert.Zero(t, executor.calls, "executor must not be invoked while flat")
	assert.Equal(t, domain.PositionFlat, b.Position().Snapshot().State)
}

func TestCycleBuyOpensPosition(t *testing.T) {
	executor := &fakeExecutor{}
	account := &fakeAccount{
		balance: decimal.NewFromInt(100),
		step:    decimal.NewFromFloat(0.0001),
	}
	b := newTestBot(constantRule(domain.SignalBuy),
		&fakeCandles{candles: testCandles(50)}, account, executor)

	b.initLotStep(context.Background())
	require.NoError(t, b.cycle(context.Background()))

	assert.Equal(t, 1, executor.calls)
	assert.True(t, executor.last.Equal(decimal.NewFromFloat(0.0002)),
		"expected 0.0002, got %s", executor.last)
	assert.Equal(t, domain.PositionLong, b.Position().Snapshot().State)
}

func TestCycleBuyWhileLongIsNoOp(t *testing.T) {
	executor := &fakeExecutor{}
	account := &fakeAccount{balance: decimal.NewFromInt(100), step: decimal.NewFromFloat(0.0001)}
	b := newTestBot(constantRule(domain.SignalBuy),
		&fakeCandles{candles: testCandles(50)}, account, executor)

	require.NoError(t, b.cycle(context.Background()))
	require.NoError(t, b.cycle(context.Background()))

	assert.Equal(t, 1, executor.calls, "second BUY must not pyramid")
	assert.Equal(t, domain.PositionLong, b.Position().Snapshot().State)
}

func TestCycleOrderFailureLeavesStateUnchanged(t *testing.T) {
	executor := &fakeExecutor{err: errors.Wrap(exchange.ErrInsufficientFunds, "rejected")}
	b := newTestBot(constantRule(domain.SignalBuy),
		&fakeCandles{candles: testCandles(50)},
		&fakeAccount{balance: decimal.NewFromInt(100)},
		executor)

	err := b.cycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.PositionFlat, b.Position().Snapshot().State)

	// the next cycle still proceeds
	executor.err = nil
	require.NoError(t, b.cycle(context.Background()))
	assert.Equal(t, domain.PositionLong, b.Position().Snapshot().State)
}

func TestCycleLowBalanceSkipsOrder(t *testing.T) {
	executor := &fakeExecutor{}
	b := newTestBot(constantRule(domain.SignalBuy),
		&fakeCandles{candles: testCandles(50)},
		&fakeAccount{balance: decimal.NewFromInt(5)},
		executor)

	require.NoError(t, b.cycle(context.Background()))

	assert.Zero(t, executor.calls, "no order below the minimum balance")
	assert.Equal(t, domain.PositionFlat, b.Position().Snapshot().State)
}

func TestCycleInsufficientHistoryHolds(t *testing.T) {
	executor := &fakeExecutor{}
	b := newTestBot(constantRule(domain.SignalBuy),
		&fakeCandles{candles: testCandles(10)},
		&fakeAccount{balance: decimal.NewFromInt(100)},
		executor)

	require.NoError(t, b.cycle(context.Background()))
	assert.Zero(t, executor.calls)
}

func TestRunBacksOffOnFetchFailureAndRecovers(t *testing.T) {
	candles := &fakeCandles{
		candles: testCandles(50),
		errs: []error{
			errors.Wrap(market.ErrFetch, "down"),
			errors.Wrap(market.ErrFetch, "down"),
		},
	}
	b := newTestBot(constantRule(domain.SignalHold), candles,
		&fakeAccount{balance: decimal.NewFromInt(100)}, &fakeExecutor{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	// two backoff sleeps (5ms each) get the third, successful fetch long
	// before the 500ms poll interval would
	require.Eventually(t, func() bool {
		return candles.callCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type fakeJournal struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeJournal) Append(event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeJournal) snapshot() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

func TestCycleJournalsFullDecisionContext(t *testing.T) {
	journal := &fakeJournal{}
	b := New(
		zap.NewNop(),
		testPair,
		constantRule(domain.SignalHold),
		sizer.New(decimal.NewFromFloat(0.10), decimal.NewFromInt(10)),
		&fakeCandles{candles: testCandles(50)},
		&fakeAccount{balance: decimal.NewFromInt(100)},
		&fakeExecutor{},
		journal,
		500*time.Millisecond,
		5*time.Millisecond,
	)

	require.NoError(t, b.cycle(context.Background()))

	events := journal.snapshot()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, domain.EventDecision, event.Kind)
	assert.Equal(t, "BTC_USDT", event.Pair)
	assert.Equal(t, "HOLD", event.Signal)
	assert.Equal(t, "50000", event.Close)

	// constant closes: MACD lines converge to zero but stay finite,
	// while RSI divides zero by zero and must be absent
	assert.Equal(t, "0.0000", event.MACD)
	assert.Equal(t, "0.0000", event.MACDSignal)
	assert.Empty(t, event.RSI14)
}
