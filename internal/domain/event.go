package domain

import "time"

// EventKind classifies journal entries.
type EventKind string

const (
	EventDecision EventKind = "decision"
	EventOrder    EventKind = "order"
	EventBalance  EventKind = "balance"
)

// Event is a single journal entry. The journal is the bot's audit trail:
// with no database, every decision, order attempt and balance snapshot
// is appended here and streamed to the web UI. String fields keep decimal
// values exact for consumers.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"ts"`
	Pair      string    `json:"pair"`

	// decision fields
	Signal     string `json:"signal,omitempty"`
	Close      string `json:"close,omitempty"`
	RSI14      string `json:"rsi14,omitempty"`
	BBHigh     string `json:"bb_high,omitempty"`
	BBLow      string `json:"bb_low,omitempty"`
	MACD       string `json:"macd,omitempty"`
	MACDSignal string `json:"macd_signal,omitempty"`

	// order fields
	Side     string `json:"side,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Price    string `json:"price,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`

	// balance fields
	BaseFree   string `json:"base_free,omitempty"`
	QuoteFree  string `json:"quote_free,omitempty"`
	TotalQuote string `json:"total_quote,omitempty"`
}

// EventRecord bundles an event with its journal index.
type EventRecord struct {
	Index uint64 `json:"index"`
	Event Event  `json:"event"`
}
