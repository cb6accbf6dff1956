package orderbookv1

import (
	"container/list"
	"errors"
	"time"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
)

var (
	// ErrPriceMismatch is returned when an order is appended to a level
	// with a different limit price.
	ErrPriceMismatch = errors.New("order price does not match level price")
	// ErrSideMismatch is returned when an order is appended to a level
	// holding the opposite side.
	ErrSideMismatch = errors.New("order side does not match level side")
)

// PriceLevel holds the resting orders at one price, strictly FIFO by book
// insertion sequence. An order keeps its position on partial fills; the
// id index makes removal O(1).
type PriceLevel struct {
	Price fixedpoint.Amount
	Side  orderv1.Side

	orders  *list.List // of *orderv1.Order, oldest at front
	entries map[string]*list.Element
	total   fixedpoint.Amount // sum of remaining quantities
}

// NewPriceLevel creates an empty level for the given price and side.
func NewPriceLevel(price fixedpoint.Amount, side orderv1.Side) *PriceLevel {
	return &PriceLevel{
		Price:   price,
		Side:    side,
		orders:  list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Append adds an order to the tail of the level's FIFO queue.
func (l *PriceLevel) Append(o *orderv1.Order) error {
	if o == nil {
		return orderv1.ErrNilOrder
	}
	if o.Price != l.Price {
		return ErrPriceMismatch
	}
	if o.Side != l.Side {
		return ErrSideMismatch
	}
	if _, exists := l.entries[o.ID]; exists {
		return orderv1.ErrDuplicateOrder
	}

	l.entries[o.ID] = l.orders.PushBack(o)
	l.total += o.Remaining
	return nil
}

// Remove takes an order off the level by id. Returns the removed order or
// ErrOrderNotFound.
func (l *PriceLevel) Remove(orderID string) (*orderv1.Order, error) {
	elem, exists := l.entries[orderID]
	if !exists {
		return nil, orderv1.ErrOrderNotFound
	}

	o := l.orders.Remove(elem).(*orderv1.Order)
	delete(l.entries, orderID)
	l.total -= o.Remaining
	return o, nil
}

// Reduce lowers the level's tracked remaining quantity for an order in
// place, preserving its FIFO position. The book adjusts the order's own
// remaining quantity alongside.
func (l *PriceLevel) Reduce(orderID string, qty fixedpoint.Amount) error {
	if _, exists := l.entries[orderID]; !exists {
		return orderv1.ErrOrderNotFound
	}
	l.total -= qty
	return nil
}

// Contains reports whether the level holds the given order id.
func (l *PriceLevel) Contains(orderID string) bool {
	_, exists := l.entries[orderID]
	return exists
}

// Front returns the oldest matchable order: remaining quantity left and
// not expired at the given time. Expired orders are skipped rather than
// matched; the expiry sweep removes them later.
func (l *PriceLevel) Front(now time.Time) *orderv1.Order {
	for elem := l.orders.Front(); elem != nil; elem = elem.Next() {
		o := elem.Value.(*orderv1.Order)
		if o.Remaining > 0 && !o.IsExpired(now) {
			return o
		}
	}
	return nil
}

// Orders returns the level's orders in FIFO sequence.
func (l *PriceLevel) Orders() []*orderv1.Order {
	orders := make([]*orderv1.Order, 0, l.orders.Len())
	for elem := l.orders.Front(); elem != nil; elem = elem.Next() {
		orders = append(orders, elem.Value.(*orderv1.Order))
	}
	return orders
}

// Len returns the number of orders at the level.
func (l *PriceLevel) Len() int {
	return l.orders.Len()
}

// IsEmpty reports whether the level has no orders. Empty levels are
// removed from the book.
func (l *PriceLevel) IsEmpty() bool {
	return l.orders.Len() == 0
}

// TotalQuantity returns the sum of remaining quantities at the level.
func (l *PriceLevel) TotalQuantity() fixedpoint.Amount {
	return l.total
}
