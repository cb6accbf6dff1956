package snapshotv1

import (
	"context"
	"time"
)

// BookOrder is one resting order inside a persisted book snapshot. Amounts
// are decimal strings so the snapshot round-trips the fixed-point precision
// losslessly.
type BookOrder struct {
	OrderID   string     `json:"orderId"`
	OwnerID   string     `json:"ownerId"`
	Side      string     `json:"side"`
	Price     string     `json:"price"`
	Quantity  string     `json:"quantity"`
	Remaining string     `json:"remaining"`
	Status    string     `json:"status"`
	Sequence  int64      `json:"sequence"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Snapshot is a persisted copy of one instrument's open orders, used to
// rebuild the book after a restart. Orders are stored in their original
// insertion sequence and re-inserted without matching, since they were
// already matched as of the last persisted state.
type Snapshot struct {
	InstrumentID string      `json:"instrumentId"`
	OrderSeq     int64       `json:"orderSeq"` // book sequence counter at snapshot time
	StreamOffset int64       `json:"streamOffset"`
	Orders       []BookOrder `json:"orders"`
	TakenAt      time.Time   `json:"takenAt"`
}

// Store persists and loads book snapshots.
type Store interface {
	Store(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, instrumentID string) (*Snapshot, error)
}
