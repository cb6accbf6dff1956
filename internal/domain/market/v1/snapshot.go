package marketv1

import (
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
)

// DepthLevel aggregates the resting interest at one price.
type DepthLevel struct {
	Price      fixedpoint.Amount `json:"price"`
	Quantity   fixedpoint.Amount `json:"quantity"`
	OrderCount int               `json:"orderCount"`
}

// Snapshot is a point-in-time view of one instrument's book. It is derived
// from book state on demand and never persisted as a source of truth.
type Snapshot struct {
	InstrumentID string            `json:"instrumentId"`
	Bids         []DepthLevel      `json:"bids"` // price descending
	Asks         []DepthLevel      `json:"asks"` // price ascending
	BestBid      fixedpoint.Amount `json:"bestBid"` // 0 when the bid side is empty
	BestAsk      fixedpoint.Amount `json:"bestAsk"` // 0 when the ask side is empty
	Spread       fixedpoint.Amount `json:"spread"`  // 0 when either side is empty
	TotalBidQty  fixedpoint.Amount `json:"totalBidQty"`
	TotalAskQty  fixedpoint.Amount `json:"totalAskQty"`
	TakenAt      time.Time         `json:"takenAt"`
}

// Imbalance returns the order-imbalance ratio
// (bidQty - askQty) / (bidQty + askQty), in [-1, 1]. Zero when the book is
// empty on both sides.
func (s *Snapshot) Imbalance() float64 {
	total := s.TotalBidQty + s.TotalAskQty
	if total == 0 {
		return 0
	}
	return float64(s.TotalBidQty-s.TotalAskQty) / float64(total)
}
