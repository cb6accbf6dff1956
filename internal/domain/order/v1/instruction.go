package orderv1

import "time"

// Action represents the kind of instruction carried on the inbound order
// stream.
type Action string

const (
	// ActionSubmit places a new order.
	ActionSubmit Action = "submit"
	// ActionCancel cancels a resting order.
	ActionCancel Action = "cancel"
)

// Instruction is the wire payload consumed from the order stream. Prices
// and quantities travel as decimal strings and are converted to fixed-point
// amounts before they reach the book.
type Instruction struct {
	Action       Action     `json:"action"`
	InstrumentID string     `json:"instrumentId"`
	RequesterID  string     `json:"requesterId"`
	OrderID      string     `json:"orderId,omitempty"` // cancel target
	Side         string     `json:"side,omitempty"`
	Price        string     `json:"price,omitempty"`
	Quantity     string     `json:"quantity,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Offset       int64      `json:"-"` // stream offset, set by the reader
}
