// Package orderbook maintains one instrument's resting orders: two price
// level collections (bids iterated descending, asks ascending), an order id
// index for O(1) cancel, and a cached market snapshot.
package orderbook

import (
	"sort"
	"sync"
	"time"

	marketv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/market/v1"
	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	orderbookv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/orderbook/v1"
	snapshotv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/snapshot/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
)

// OrderBook holds the resting orders for a single instrument. All mutation
// goes through the matching engine, which serializes access per instrument;
// the internal lock only protects concurrent snapshot reads.
type OrderBook struct {
	instrumentID string

	mu        sync.RWMutex
	bidLevels map[fixedpoint.Amount]*orderbookv1.PriceLevel
	askLevels map[fixedpoint.Amount]*orderbookv1.PriceLevel
	orders    map[string]*orderv1.Order
	seq       int64 // insertion sequence, definitive FIFO tie-break

	cached *marketv1.Snapshot // invalidated on every mutation
}

// NewOrderBook creates an empty book for the given instrument.
func NewOrderBook(instrumentID string) *OrderBook {
	return &OrderBook{
		instrumentID: instrumentID,
		bidLevels:    make(map[fixedpoint.Amount]*orderbookv1.PriceLevel),
		askLevels:    make(map[fixedpoint.Amount]*orderbookv1.PriceLevel),
		orders:       make(map[string]*orderv1.Order),
	}
}

// InstrumentID returns the instrument this book serves.
func (ob *OrderBook) InstrumentID() string {
	return ob.instrumentID
}

// AddOrder inserts an order at the tail of its price level's FIFO queue,
// assigning the book's next insertion sequence.
func (ob *OrderBook) AddOrder(o *orderv1.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, exists := ob.orders[o.ID]; exists {
		return orderv1.ErrDuplicateOrder
	}

	levels := ob.levelsFor(o.Side)
	level, exists := levels[o.Price]
	if !exists {
		level = orderbookv1.NewPriceLevel(o.Price, o.Side)
		levels[o.Price] = level
	}

	ob.seq++
	o.Sequence = ob.seq

	if err := level.Append(o); err != nil {
		return err
	}
	ob.orders[o.ID] = o
	ob.cached = nil

	return nil
}

// RemoveOrder takes an order off the book by id, regardless of price
// level. Returns ErrOrderNotFound when absent.
func (ob *OrderBook) RemoveOrder(orderID string) (*orderv1.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return ob.removeLocked(orderID)
}

func (ob *OrderBook) removeLocked(orderID string) (*orderv1.Order, error) {
	o, exists := ob.orders[orderID]
	if !exists {
		return nil, orderv1.ErrOrderNotFound
	}

	levels := ob.levelsFor(o.Side)
	level := levels[o.Price]
	if level != nil {
		if _, err := level.Remove(orderID); err != nil {
			return nil, err
		}
		if level.IsEmpty() {
			delete(levels, o.Price)
		}
	}
	delete(ob.orders, orderID)
	ob.cached = nil

	return o, nil
}

// ApplyFill records an execution of qty against a resting order. The
// order's remaining quantity, its status and the level total all advance
// under the book's write lock, so a concurrent snapshot read never sees
// them disagree. The order keeps its FIFO position on a partial fill and
// is removed once fully filled.
func (ob *OrderBook) ApplyFill(orderID string, qty fixedpoint.Amount) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, exists := ob.orders[orderID]
	if !exists {
		return orderv1.ErrOrderNotFound
	}
	if qty <= 0 || qty > o.Remaining {
		return orderv1.ErrInvalidQuantity
	}

	level := ob.levelsFor(o.Side)[o.Price]
	if level == nil {
		return orderv1.ErrOrderNotFound
	}
	if err := level.Reduce(orderID, qty); err != nil {
		return err
	}
	o.Fill(qty)
	ob.cached = nil

	if o.Remaining == 0 {
		_, err := ob.removeLocked(orderID)
		return err
	}
	return nil
}

// UpdateOrder replaces a resting order's remaining quantity in place
// without disturbing its FIFO position. A zero remaining quantity removes
// the order from the book.
func (ob *OrderBook) UpdateOrder(orderID string, remaining fixedpoint.Amount) error {
	if remaining < 0 {
		return orderv1.ErrInvalidQuantity
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, exists := ob.orders[orderID]
	if !exists {
		return orderv1.ErrOrderNotFound
	}

	if remaining == 0 {
		_, err := ob.removeLocked(orderID)
		return err
	}

	level := ob.levelsFor(o.Side)[o.Price]
	if level == nil {
		return orderv1.ErrOrderNotFound
	}
	if err := level.Reduce(orderID, o.Remaining-remaining); err != nil {
		return err
	}
	o.Remaining = remaining
	ob.cached = nil
	return nil
}

// GetOrder looks up a resting order by id.
func (ob *OrderBook) GetOrder(orderID string) (*orderv1.Order, error) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	o, exists := ob.orders[orderID]
	if !exists {
		return nil, orderv1.ErrOrderNotFound
	}
	return o, nil
}

// FindMatches returns the resting orders the incoming order can execute
// against, best price first and FIFO within each level. Scanning stops as
// soon as a level's price crosses outside the incoming order's limit.
// Expired orders are not matchable even before the sweep removes them.
// The book is not mutated.
func (ob *OrderBook) FindMatches(incoming *orderv1.Order) []*orderv1.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	now := time.Now()
	var matches []*orderv1.Order
	for _, level := range ob.oppositeLevelsInPriority(incoming.Side) {
		if !crosses(incoming, level.Price) {
			break
		}
		for _, resting := range level.Orders() {
			if resting.Remaining > 0 && !resting.IsExpired(now) {
				matches = append(matches, resting)
			}
		}
	}
	return matches
}

// BestMatch returns the highest-priority resting order the incoming order
// can execute against, or nil when none crosses. Expired orders are not
// matchable even before the sweep removes them.
func (ob *OrderBook) BestMatch(incoming *orderv1.Order) *orderv1.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	now := time.Now()
	for _, level := range ob.oppositeLevelsInPriority(incoming.Side) {
		if !crosses(incoming, level.Price) {
			return nil
		}
		if front := level.Front(now); front != nil {
			return front
		}
	}
	return nil
}

// ExpiredOrders returns the resting orders whose expiry has passed at the
// given time.
func (ob *OrderBook) ExpiredOrders(now time.Time) []*orderv1.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	var expired []*orderv1.Order
	for _, o := range ob.orders {
		if o.IsExpired(now) {
			expired = append(expired, o)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].Sequence < expired[j].Sequence
	})
	return expired
}

// Snapshot returns the market snapshot for the book. The snapshot is
// cached until the next mutation, so repeated reads between matches do not
// contend with the write path.
func (ob *OrderBook) Snapshot() *marketv1.Snapshot {
	ob.mu.RLock()
	if ob.cached != nil {
		snap := ob.cached
		ob.mu.RUnlock()
		return snap
	}
	ob.mu.RUnlock()

	ob.mu.Lock()
	defer ob.mu.Unlock()
	if ob.cached == nil {
		ob.cached = ob.buildSnapshotLocked()
	}
	return ob.cached
}

func (ob *OrderBook) buildSnapshotLocked() *marketv1.Snapshot {
	snap := &marketv1.Snapshot{
		InstrumentID: ob.instrumentID,
		TakenAt:      time.Now(),
	}

	for _, price := range sortedPrices(ob.bidLevels, true) {
		level := ob.bidLevels[price]
		snap.Bids = append(snap.Bids, marketv1.DepthLevel{
			Price:      price,
			Quantity:   level.TotalQuantity(),
			OrderCount: level.Len(),
		})
		snap.TotalBidQty += level.TotalQuantity()
	}
	for _, price := range sortedPrices(ob.askLevels, false) {
		level := ob.askLevels[price]
		snap.Asks = append(snap.Asks, marketv1.DepthLevel{
			Price:      price,
			Quantity:   level.TotalQuantity(),
			OrderCount: level.Len(),
		})
		snap.TotalAskQty += level.TotalQuantity()
	}

	if len(snap.Bids) > 0 {
		snap.BestBid = snap.Bids[0].Price
	}
	if len(snap.Asks) > 0 {
		snap.BestAsk = snap.Asks[0].Price
	}
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.Spread = snap.BestAsk - snap.BestBid
	}

	return snap
}

// CreateSnapshot serializes the book's open orders for persistence.
func (ob *OrderBook) CreateSnapshot() *snapshotv1.Snapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	orders := make([]*orderv1.Order, 0, len(ob.orders))
	for _, o := range ob.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Sequence < orders[j].Sequence
	})

	snap := &snapshotv1.Snapshot{
		InstrumentID: ob.instrumentID,
		OrderSeq:     ob.seq,
		TakenAt:      time.Now(),
	}
	for _, o := range orders {
		snap.Orders = append(snap.Orders, snapshotv1.BookOrder{
			OrderID:   o.ID,
			OwnerID:   o.OwnerID,
			Side:      string(o.Side),
			Price:     o.Price.String(),
			Quantity:  o.Quantity.String(),
			Remaining: o.Remaining.String(),
			Status:    string(o.Status),
			Sequence:  o.Sequence,
			CreatedAt: o.CreatedAt,
			ExpiresAt: o.ExpiresAt,
		})
	}
	return snap
}

// Restore rebuilds the book from a persisted snapshot, re-inserting orders
// in their original sequence without matching.
func (ob *OrderBook) Restore(snap *snapshotv1.Snapshot) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.bidLevels = make(map[fixedpoint.Amount]*orderbookv1.PriceLevel)
	ob.askLevels = make(map[fixedpoint.Amount]*orderbookv1.PriceLevel)
	ob.orders = make(map[string]*orderv1.Order)
	ob.seq = 0
	ob.cached = nil

	for _, bo := range snap.Orders {
		price, err := fixedpoint.FromString(bo.Price)
		if err != nil {
			return err
		}
		quantity, err := fixedpoint.FromString(bo.Quantity)
		if err != nil {
			return err
		}
		remaining, err := fixedpoint.FromString(bo.Remaining)
		if err != nil {
			return err
		}

		o := &orderv1.Order{
			ID:           bo.OrderID,
			OwnerID:      bo.OwnerID,
			InstrumentID: snap.InstrumentID,
			Side:         orderv1.Side(bo.Side),
			Price:        price,
			Quantity:     quantity,
			Remaining:    remaining,
			Status:       orderv1.Status(bo.Status),
			Sequence:     bo.Sequence,
			CreatedAt:    bo.CreatedAt,
			ExpiresAt:    bo.ExpiresAt,
		}
		if err := o.Validate(); err != nil {
			return err
		}

		levels := ob.levelsFor(o.Side)
		level, exists := levels[o.Price]
		if !exists {
			level = orderbookv1.NewPriceLevel(o.Price, o.Side)
			levels[o.Price] = level
		}
		if err := level.Append(o); err != nil {
			return err
		}
		ob.orders[o.ID] = o
		if o.Sequence > ob.seq {
			ob.seq = o.Sequence
		}
	}

	if snap.OrderSeq > ob.seq {
		ob.seq = snap.OrderSeq
	}
	return nil
}

// Len returns the number of resting orders.
func (ob *OrderBook) Len() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.orders)
}

func (ob *OrderBook) levelsFor(side orderv1.Side) map[fixedpoint.Amount]*orderbookv1.PriceLevel {
	if side == orderv1.SideBuy {
		return ob.bidLevels
	}
	return ob.askLevels
}

// oppositeLevelsInPriority returns the opposite side's levels best price
// first: ascending asks for an incoming buy, descending bids for an
// incoming sell.
func (ob *OrderBook) oppositeLevelsInPriority(side orderv1.Side) []*orderbookv1.PriceLevel {
	source := ob.levelsFor(side.Opposite())
	desc := side == orderv1.SideSell

	levels := make([]*orderbookv1.PriceLevel, 0, len(source))
	for _, price := range sortedPrices(source, desc) {
		levels = append(levels, source[price])
	}
	return levels
}

// crosses reports whether the incoming order's limit allows execution at
// the given opposite-side price.
func crosses(incoming *orderv1.Order, oppositePrice fixedpoint.Amount) bool {
	if incoming.IsBuy() {
		return oppositePrice <= incoming.Price
	}
	return oppositePrice >= incoming.Price
}

func sortedPrices(levels map[fixedpoint.Amount]*orderbookv1.PriceLevel, desc bool) []fixedpoint.Amount {
	prices := make([]fixedpoint.Amount, 0, len(levels))
	for price := range levels {
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool {
		if desc {
			return prices[i] > prices[j]
		}
		return prices[i] < prices[j]
	})
	return prices
}
