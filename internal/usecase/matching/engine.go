// Package matching implements the per-instrument matching engine:
// price-time priority, maker-price execution, all-or-nothing validation.
package matching

import (
	"math/rand"
	"sync"
	"time"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	tradev1 "github.com/azaynul10/CarbonPro-AI/internal/domain/trade/v1"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/orderbook"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Result reports the outcome of a submission: the submitted order (with
// final status) and the trades executed against it, in execution sequence.
type Result struct {
	Order  *orderv1.Order
	Trades []*tradev1.Trade
	// Touched holds the resting orders whose remaining quantity changed
	// during the pass, in execution sequence, for event fan-out.
	Touched []*orderv1.Order
}

// Rested reports whether the submitted order stayed on the book.
func (r *Result) Rested() bool {
	return r.Order.Status.IsOpen()
}

// Engine matches incoming orders against one instrument's book. All
// mutations for the instrument are serialized through the engine's mutex,
// so the sequential matching algorithm is valid; separate instruments run
// fully in parallel on separate engines.
type Engine struct {
	mu      sync.Mutex
	book    *orderbook.OrderBook
	logger  logger.Interface
	entropy *ulid.MonotonicEntropy
}

// NewEngine creates a matching engine over the given book.
func NewEngine(book *orderbook.OrderBook, log logger.Interface) *Engine {
	return &Engine{
		book:    book,
		logger:  log,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Book exposes the underlying order book for snapshot reads.
func (e *Engine) Book() *orderbook.OrderBook {
	return e.book
}

// SubmitOrder validates the order, executes it against the book until no
// further match exists, and rests any remainder. Validation failures leave
// the book untouched. The executed price is always the resting order's
// limit price.
func (e *Engine) SubmitOrder(ownerID string, side orderv1.Side, instrumentID string, price, quantity fixedpoint.Amount, expiresAt *time.Time) (*Result, error) {
	incoming := orderv1.NewOrder(uuid.NewString(), ownerID, instrumentID, side, price, quantity)
	incoming.ExpiresAt = expiresAt

	if err := incoming.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result := &Result{Order: incoming}

	for incoming.Remaining > 0 {
		resting := e.book.BestMatch(incoming)
		if resting == nil {
			break
		}

		qty := fixedpoint.Min(incoming.Remaining, resting.Remaining)
		trade := &tradev1.Trade{
			ID:           ulid.MustNew(ulid.Now(), e.entropy).String(),
			BuyOrderID:   buyOrderID(incoming, resting),
			SellOrderID:  sellOrderID(incoming, resting),
			InstrumentID: instrumentID,
			Price:        resting.Price,
			Quantity:     qty,
			ExecutedAt:   time.Now(),
		}

		incoming.Fill(qty)
		// The resting order's fill happens inside the book's write lock so
		// snapshot readers never observe it mid-update.
		if err := e.book.ApplyFill(resting.ID, qty); err != nil {
			// Book and order disagree about a resting order; matching
			// state is corrupt for this instrument.
			e.logger.Error(err,
				logger.Field{Key: "orderID", Value: resting.ID},
				logger.Field{Key: "instrumentID", Value: instrumentID},
			)
			return nil, err
		}

		result.Trades = append(result.Trades, trade)
		result.Touched = append(result.Touched, resting)

		e.logger.Debug("trade executed",
			logger.Field{Key: "tradeID", Value: trade.ID},
			logger.Field{Key: "instrumentID", Value: instrumentID},
			logger.Field{Key: "price", Value: trade.Price.String()},
			logger.Field{Key: "quantity", Value: trade.Quantity.String()},
		)
	}

	if incoming.Remaining > 0 {
		// Rest the remainder; status stays pending or partial depending
		// on whether any fill happened.
		if err := e.book.AddOrder(incoming); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// CancelOrder removes a resting order on behalf of its owner. A cancel for
// an unknown or already-closed order reports ErrOrderNotFound; a cancel by
// a non-owner reports ErrNotOwner and mutates nothing. Cancellation never
// triggers matching.
func (e *Engine) CancelOrder(orderID, requesterID string) (*orderv1.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.book.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != requesterID {
		return nil, orderv1.ErrNotOwner
	}

	if _, err := e.book.RemoveOrder(orderID); err != nil {
		return nil, err
	}
	o.Status = orderv1.StatusCancelled

	e.logger.Debug("order cancelled",
		logger.Field{Key: "orderID", Value: orderID},
		logger.Field{Key: "instrumentID", Value: o.InstrumentID},
	)
	return o, nil
}

// AmendOrder reduces a resting order's remaining quantity in place on
// behalf of its owner, preserving its FIFO position. Reducing to zero
// removes the order as cancelled. Increases are rejected: they would have
// to forfeit time priority, which callers do by cancel-and-resubmit.
func (e *Engine) AmendOrder(orderID, requesterID string, remaining fixedpoint.Amount) (*orderv1.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.book.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != requesterID {
		return nil, orderv1.ErrNotOwner
	}
	if remaining > o.Remaining {
		return nil, orderv1.ErrInvalidQuantity
	}

	if err := e.book.UpdateOrder(orderID, remaining); err != nil {
		return nil, err
	}
	if remaining == 0 {
		o.Status = orderv1.StatusCancelled
	}
	return o, nil
}

// ExpireDue removes every resting order whose expiry has passed, marking
// them expired. Returns the removed orders in insertion sequence.
func (e *Engine) ExpireDue(now time.Time) []*orderv1.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	due := e.book.ExpiredOrders(now)
	expired := make([]*orderv1.Order, 0, len(due))
	for _, o := range due {
		if _, err := e.book.RemoveOrder(o.ID); err != nil {
			continue
		}
		o.Status = orderv1.StatusExpired
		expired = append(expired, o)
	}
	return expired
}

func buyOrderID(incoming, resting *orderv1.Order) string {
	if incoming.IsBuy() {
		return incoming.ID
	}
	return resting.ID
}

func sellOrderID(incoming, resting *orderv1.Order) string {
	if incoming.IsSell() {
		return incoming.ID
	}
	return resting.ID
}
