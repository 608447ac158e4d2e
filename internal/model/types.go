package model

import (
	"encoding/json"
	"time"
)

// Side is the direction of a trade from the tracked token's perspective.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// EventKind discriminates push event payloads.
type EventKind string

const (
	KindSwap EventKind = "swap"
	KindMint EventKind = "mint"
	KindBurn EventKind = "burn"
	KindSync EventKind = "sync"
)

// BlockchainEvent is a normalized push notification from the backend.
// Immutable once received.
type BlockchainEvent struct {
	Pool        string          `json:"pool"`
	Kind        EventKind       `json:"kind"`
	BlockNumber uint64          `json:"blockNumber"`
	TxHash      string          `json:"txHash"`
	Timestamp   int64           `json:"timestamp"` // raw: seconds or milliseconds
	Args        json.RawMessage `json:"args,omitempty"`
}

// SwapArgs is the argument bag carried by swap events. Amounts are signed
// decimal strings in raw token units; sign is relative to the pool (negative
// means the pool's balance of that token decreased).
type SwapArgs struct {
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// SwapArgs decodes the event's argument bag as swap arguments.
func (e BlockchainEvent) SwapArgs() (SwapArgs, error) {
	var args SwapArgs
	err := json.Unmarshal(e.Args, &args)
	return args, err
}

// Trade is a reconciled, UI-facing trade derived from one push event or one
// historical record. Never mutated after creation.
type Trade struct {
	TxHash      string // identity key for deduplication
	BlockNumber uint64
	Pool        string
	Side        Side
	TokenAmount float64 // tracked-token leg, absolute
	CounterAmt  float64 // counter-asset leg, absolute
	Price       float64 // counter amount per tracked token; 0 when undefined
	Time        time.Time
	Sender      string
	Recipient   string
}

// Key returns the deduplication identity for the trade.
func (t Trade) Key() string {
	return t.TxHash
}

// Completeness scores how fully populated a trade record is, so that merges
// can prefer the richer of two records sharing one transaction hash.
func (t Trade) Completeness() int {
	n := 0
	if t.BlockNumber != 0 {
		n++
	}
	if t.Sender != "" {
		n++
	}
	if t.Recipient != "" {
		n++
	}
	if !t.Time.IsZero() {
		n++
	}
	if t.Price != 0 {
		n++
	}
	return n
}

// GlobalTrade is a cross-pool trade summary returned by global-trade queries.
type GlobalTrade struct {
	Pool      string  `json:"pool"`
	TxHash    string  `json:"txHash"`
	Side      Side    `json:"side"`
	AmountUSD float64 `json:"amountUsd"`
	Timestamp int64   `json:"timestamp"` // raw: seconds or milliseconds
}
