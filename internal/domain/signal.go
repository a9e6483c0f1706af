package domain

// Signal is the outcome of evaluating a strategy rule against the latest
// indicator snapshot. It is derived per cycle and never stored.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

// String returns the string representation of the signal.
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}
