package orderv1

import (
	"errors"
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
)

// Validation and lookup sentinels for order operations.
var (
	ErrNilOrder        = errors.New("order cannot be nil")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidSide     = errors.New("side must be buy or sell")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotOwner        = errors.New("order belongs to another owner")
	ErrDuplicateOrder  = errors.New("order id already on the book")
)

// IsInvalid reports whether err is one of the order validation sentinels,
// i.e. the submission was malformed and no state was mutated.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrNilOrder) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidSide)
}

// Side represents the side of an order.
type Side string

const (
	// SideBuy represents a buy order.
	SideBuy Side = "buy"
	// SideSell represents a sell order.
	SideSell Side = "sell"
)

// Valid reports whether the side is buy or sell.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Status represents the lifecycle status of an order. Transitions only
// move forward: pending -> partial -> completed, pending -> cancelled,
// pending/partial -> expired or cancelled.
type Status string

const (
	// StatusPending is a resting order with no fills yet.
	StatusPending Status = "pending"
	// StatusPartial is a resting order with at least one fill.
	StatusPartial Status = "partial"
	// StatusCompleted is a fully filled order.
	StatusCompleted Status = "completed"
	// StatusCancelled is an order removed by its owner.
	StatusCancelled Status = "cancelled"
	// StatusExpired is an order removed because its expiry passed.
	StatusExpired Status = "expired"
)

// IsOpen reports whether the status still permits fills or cancellation.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusPartial
}

// Order represents a single limit order.
type Order struct {
	ID           string             `json:"id"`
	OwnerID      string             `json:"ownerId"`
	InstrumentID string             `json:"instrumentId"`
	Side         Side               `json:"side"`
	Price        fixedpoint.Amount  `json:"price"`
	Quantity     fixedpoint.Amount  `json:"quantity"`
	Remaining    fixedpoint.Amount  `json:"remaining"`
	Status       Status             `json:"status"`
	Sequence     int64              `json:"sequence"` // book insertion sequence, definitive FIFO tie-break
	CreatedAt    time.Time          `json:"createdAt"`
	ExpiresAt    *time.Time         `json:"expiresAt,omitempty"`
}

// NewOrder creates a pending order with full remaining quantity.
func NewOrder(id, ownerID, instrumentID string, side Side, price, quantity fixedpoint.Amount) *Order {
	return &Order{
		ID:           id,
		OwnerID:      ownerID,
		InstrumentID: instrumentID,
		Side:         side,
		Price:        price,
		Quantity:     quantity,
		Remaining:    quantity,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
}

// Validate checks the order fields that matching relies on.
func (o *Order) Validate() error {
	if o == nil {
		return ErrNilOrder
	}
	if !o.Side.Valid() {
		return ErrInvalidSide
	}
	if !o.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if !o.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	return nil
}

// IsBuy reports whether the order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsSell reports whether the order is on the sell side.
func (o *Order) IsSell() bool {
	return o.Side == SideSell
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// IsExpired reports whether the order's expiry has passed at the given
// time. Orders without expiry never expire.
func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// Fill decrements the remaining quantity by qty and advances the status.
// The caller guarantees qty <= Remaining; the invariant remaining >= 0
// holds afterwards.
func (o *Order) Fill(qty fixedpoint.Amount) {
	o.Remaining -= qty
	if o.Remaining == 0 {
		o.Status = StatusCompleted
	} else {
		o.Status = StatusPartial
	}
}
