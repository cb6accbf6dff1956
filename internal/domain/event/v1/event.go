package eventv1

import (
	"context"
	"time"

	marketv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/market/v1"
	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	tradev1 "github.com/azaynul10/CarbonPro-AI/internal/domain/trade/v1"
)

// Type identifies an engine event.
type Type string

const (
	// TypeOrderAdded is emitted when an order starts resting on the book.
	TypeOrderAdded Type = "order_added"
	// TypeOrderUpdated is emitted when a resting order's remaining quantity
	// changes.
	TypeOrderUpdated Type = "order_updated"
	// TypeOrderRemoved is emitted when an order leaves the book (filled,
	// cancelled or expired).
	TypeOrderRemoved Type = "order_removed"
	// TypeTradeExecuted is emitted for every execution. This is the
	// canonical record an external settlement step attaches its own
	// transaction identifier to, after the fact.
	TypeTradeExecuted Type = "trade_executed"
	// TypeMarketSnapshotUpdated is emitted after a matching pass changes
	// the book.
	TypeMarketSnapshotUpdated Type = "market_snapshot_updated"
)

// OrderPayload is the order snapshot carried on order events. Amounts are
// decimal strings so the fixed-point precision round-trips losslessly.
type OrderPayload struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	InstrumentID string     `json:"instrumentId"`
	Side         string     `json:"side"`
	Price        string     `json:"price"`
	Quantity     string     `json:"quantity"`
	Remaining    string     `json:"remaining"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// TradePayload is the trade record carried on TradeExecuted events.
type TradePayload struct {
	ID           string    `json:"id"`
	BuyOrderID   string    `json:"buyOrderId"`
	SellOrderID  string    `json:"sellOrderId"`
	InstrumentID string    `json:"instrumentId"`
	Price        string    `json:"price"`
	Quantity     string    `json:"quantity"`
	ExecutedAt   time.Time `json:"executedAt"`
}

// DepthPayload is one aggregated price level on snapshot events.
type DepthPayload struct {
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	OrderCount int    `json:"orderCount"`
}

// SnapshotPayload is the market snapshot carried on MarketSnapshotUpdated
// events.
type SnapshotPayload struct {
	InstrumentID string         `json:"instrumentId"`
	BestBid      string         `json:"bestBid"`
	BestAsk      string         `json:"bestAsk"`
	Spread       string         `json:"spread"`
	Bids         []DepthPayload `json:"bids"`
	Asks         []DepthPayload `json:"asks"`
	Imbalance    float64        `json:"imbalance"`
	TakenAt      time.Time      `json:"takenAt"`
}

// Envelope is the wire format published on the outbound event stream.
// Exactly one payload field is set, matching Type.
type Envelope struct {
	Type         Type             `json:"type"`
	InstrumentID string           `json:"instrumentId"`
	OccurredAt   time.Time        `json:"occurredAt"`
	Order        *OrderPayload    `json:"order,omitempty"`
	Trade        *TradePayload    `json:"trade,omitempty"`
	Snapshot     *SnapshotPayload `json:"snapshot,omitempty"`
}

// Publisher publishes engine events to external collaborators. Delivery is
// at-least-once; consumers deduplicate on the immutable order/trade ids.
type Publisher interface {
	Publish(ctx context.Context, envelope *Envelope) error
	Close() error
}

// OrderEvent builds an order event envelope from a domain order.
func OrderEvent(eventType Type, o *orderv1.Order) *Envelope {
	return &Envelope{
		Type:         eventType,
		InstrumentID: o.InstrumentID,
		OccurredAt:   time.Now(),
		Order: &OrderPayload{
			ID:           o.ID,
			OwnerID:      o.OwnerID,
			InstrumentID: o.InstrumentID,
			Side:         string(o.Side),
			Price:        o.Price.String(),
			Quantity:     o.Quantity.String(),
			Remaining:    o.Remaining.String(),
			Status:       string(o.Status),
			CreatedAt:    o.CreatedAt,
			ExpiresAt:    o.ExpiresAt,
		},
	}
}

// TradeEvent builds a TradeExecuted envelope from a domain trade.
func TradeEvent(t *tradev1.Trade) *Envelope {
	return &Envelope{
		Type:         TypeTradeExecuted,
		InstrumentID: t.InstrumentID,
		OccurredAt:   time.Now(),
		Trade: &TradePayload{
			ID:           t.ID,
			BuyOrderID:   t.BuyOrderID,
			SellOrderID:  t.SellOrderID,
			InstrumentID: t.InstrumentID,
			Price:        t.Price.String(),
			Quantity:     t.Quantity.String(),
			ExecutedAt:   t.ExecutedAt,
		},
	}
}

// SnapshotEvent builds a MarketSnapshotUpdated envelope from a market
// snapshot.
func SnapshotEvent(s *marketv1.Snapshot) *Envelope {
	payload := &SnapshotPayload{
		InstrumentID: s.InstrumentID,
		BestBid:      s.BestBid.String(),
		BestAsk:      s.BestAsk.String(),
		Spread:       s.Spread.String(),
		Imbalance:    s.Imbalance(),
		TakenAt:      s.TakenAt,
	}
	for _, lvl := range s.Bids {
		payload.Bids = append(payload.Bids, DepthPayload{
			Price:      lvl.Price.String(),
			Quantity:   lvl.Quantity.String(),
			OrderCount: lvl.OrderCount,
		})
	}
	for _, lvl := range s.Asks {
		payload.Asks = append(payload.Asks, DepthPayload{
			Price:      lvl.Price.String(),
			Quantity:   lvl.Quantity.String(),
			OrderCount: lvl.OrderCount,
		})
	}

	return &Envelope{
		Type:         TypeMarketSnapshotUpdated,
		InstrumentID: s.InstrumentID,
		OccurredAt:   time.Now(),
		Snapshot:     payload,
	}
}
