package tradev1

import (
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
)

// Trade represents a single execution between a buy and a sell order.
// Trades are immutable once created; the id is the key downstream
// collaborators use for idempotent persistence and settlement notarization.
type Trade struct {
	ID           string            `json:"id"`
	BuyOrderID   string            `json:"buyOrderId"`
	SellOrderID  string            `json:"sellOrderId"`
	InstrumentID string            `json:"instrumentId"`
	Price        fixedpoint.Amount `json:"price"` // always the resting order's limit price
	Quantity     fixedpoint.Amount `json:"quantity"`
	ExecutedAt   time.Time         `json:"executedAt"`
}
