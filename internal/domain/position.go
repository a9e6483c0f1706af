package domain

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionState is the exposure of a traded pair.
type PositionState int

const (
	// PositionFlat means no open position.
	PositionFlat PositionState = iota
	// PositionLong means an open long position.
	PositionLong
)

// String returns the string representation of the state.
func (s PositionState) String() string {
	if s == PositionLong {
		return "LONG"
	}
	return "FLAT"
}

// Position tracks the open/closed status for a single pair and gates
// whether a signal is actionable. It is the only mutable state shared
// between workers, so every access goes through the mutex. State is kept
// in memory only and is lost on restart; the bot does not reconcile
// against actual exchange holdings.
type Position struct {
	mu       sync.Mutex
	pair     Pair
	state    PositionState
	quantity decimal.Decimal
	entry    decimal.Decimal
	openedAt time.Time
}

// NewPosition creates a flat position for the pair.
func NewPosition(pair Pair) *Position {
	return &Position{pair: pair, state: PositionFlat}
}

// Actionable reports whether the signal may proceed to order submission:
// a BUY only from flat, a SELL only from long. HOLD is never actionable.
func (p *Position) Actionable(sig Signal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch sig {
	case SignalBuy:
		return p.state == PositionFlat
	case SignalSell:
		return p.state == PositionLong
	default:
		return false
	}
}

// ApplyFill transitions the state after a confirmed order fill. It must
// only be called with the confirmation of a successfully executed order;
// rejected or failed orders never reach this point.
func (p *Position) ApplyFill(sig Signal, quantity, price decimal.Decimal, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch sig {
	case SignalBuy:
		if p.state != PositionFlat {
			return errors.Errorf("cannot open %s: position already %s", p.pair.String(), p.state)
		}
		p.state = PositionLong
		p.quantity = quantity
		p.entry = price
		p.openedAt = at
	case SignalSell:
		if p.state != PositionLong {
			return errors.Errorf("cannot close %s: position is %s", p.pair.String(), p.state)
		}
		p.state = PositionFlat
		p.quantity = decimal.Zero
		p.entry = decimal.Zero
		p.openedAt = time.Time{}
	default:
		return errors.New("hold signal carries no transition")
	}
	return nil
}

// PositionView is an immutable copy of the position for reporting.
type PositionView struct {
	Pair     Pair
	State    PositionState
	Quantity decimal.Decimal
	Entry    decimal.Decimal
	OpenedAt time.Time
}

// Snapshot returns a copy of the current position.
func (p *Position) Snapshot() PositionView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PositionView{
		Pair:     p.pair,
		State:    p.state,
		Quantity: p.quantity,
		Entry:    p.entry,
		OpenedAt: p.openedAt,
	}
}
