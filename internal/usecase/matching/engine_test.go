package matching

import (
	"fmt"
	"sync"
	"testing"
	"time"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/orderbook"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstrument = "VCS-2026"

func newTestEngine(t testing.TB) *Engine {
	t.Helper()

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)

	return NewEngine(orderbook.NewOrderBook(testInstrument), log)
}

func submit(t testing.TB, e *Engine, owner string, side orderv1.Side, priceCents, qtyUnits int64) *Result {
	t.Helper()

	result, err := e.SubmitOrder(owner, side, testInstrument,
		fixedpoint.Amount(priceCents), fixedpoint.FromUnits(qtyUnits), nil)
	require.NoError(t, err)
	return result
}

func TestEngine_SubmitOrder_Validation(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		side    orderv1.Side
		price   fixedpoint.Amount
		qty     fixedpoint.Amount
		wantErr error
	}{
		{"zero price", orderv1.SideBuy, 0, fixedpoint.FromUnits(10), orderv1.ErrInvalidPrice},
		{"negative price", orderv1.SideBuy, -100, fixedpoint.FromUnits(10), orderv1.ErrInvalidPrice},
		{"zero quantity", orderv1.SideBuy, 2500, 0, orderv1.ErrInvalidQuantity},
		{"negative quantity", orderv1.SideSell, 2500, -1, orderv1.ErrInvalidQuantity},
		{"bad side", orderv1.Side("hold"), 2500, fixedpoint.FromUnits(10), orderv1.ErrInvalidSide},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.SubmitOrder("alice", tc.side, testInstrument, tc.price, tc.qty, nil)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.True(t, orderv1.IsInvalid(err))
		})
	}

	// Nothing rested: validation failures leave the book untouched.
	assert.Equal(t, 0, e.Book().Len())
}

// The three-order walkthrough: a resting buy, a crossing sell executed at
// the maker's price, then a non-crossing sell that rests.
func TestEngine_SubmitOrder_Walkthrough(t *testing.T) {
	e := newTestEngine(t)

	// Buy 10 @ $25.00 rests.
	r1 := submit(t, e, "alice", orderv1.SideBuy, 2500, 10)
	assert.Empty(t, r1.Trades)
	assert.True(t, r1.Rested())
	assert.Equal(t, orderv1.StatusPending, r1.Order.Status)

	// Sell 6 @ $24.00 crosses and executes at the resting price $25.00.
	r2 := submit(t, e, "bob", orderv1.SideSell, 2400, 6)
	require.Len(t, r2.Trades, 1)
	trade := r2.Trades[0]
	assert.Equal(t, fixedpoint.Amount(2500), trade.Price)
	assert.Equal(t, fixedpoint.FromUnits(6), trade.Quantity)
	assert.Equal(t, r1.Order.ID, trade.BuyOrderID)
	assert.Equal(t, r2.Order.ID, trade.SellOrderID)
	assert.Equal(t, orderv1.StatusCompleted, r2.Order.Status)
	assert.False(t, r2.Rested())

	// The resting buy is partially filled with 4 left.
	assert.Equal(t, orderv1.StatusPartial, r1.Order.Status)
	assert.Equal(t, fixedpoint.FromUnits(4), r1.Order.Remaining)

	// Sell 10 @ $26.00 does not cross and rests.
	r3 := submit(t, e, "carol", orderv1.SideSell, 2600, 10)
	assert.Empty(t, r3.Trades)
	assert.True(t, r3.Rested())

	// Best bid 25.00, best ask 26.00, spread 1.00.
	snap := e.Book().Snapshot()
	assert.Equal(t, fixedpoint.Amount(2500), snap.BestBid)
	assert.Equal(t, fixedpoint.Amount(2600), snap.BestAsk)
	assert.Equal(t, "1.00", snap.Spread.String())
}

func TestEngine_SubmitOrder_FIFOTieBreak(t *testing.T) {
	e := newTestEngine(t)

	// Two sells at the same price; the earlier one fills first.
	a := submit(t, e, "alice", orderv1.SideSell, 2500, 5)
	b := submit(t, e, "bob", orderv1.SideSell, 2500, 5)

	r := submit(t, e, "carol", orderv1.SideBuy, 2500, 7)
	require.Len(t, r.Trades, 2)

	assert.Equal(t, a.Order.ID, r.Trades[0].SellOrderID)
	assert.Equal(t, fixedpoint.FromUnits(5), r.Trades[0].Quantity)
	assert.Equal(t, b.Order.ID, r.Trades[1].SellOrderID)
	assert.Equal(t, fixedpoint.FromUnits(2), r.Trades[1].Quantity)

	assert.Equal(t, orderv1.StatusCompleted, a.Order.Status)
	assert.Equal(t, orderv1.StatusPartial, b.Order.Status)
	assert.Equal(t, fixedpoint.FromUnits(3), b.Order.Remaining)
}

func TestEngine_SubmitOrder_SweepsMultipleLevels(t *testing.T) {
	e := newTestEngine(t)

	submit(t, e, "s1", orderv1.SideSell, 2400, 5)
	submit(t, e, "s2", orderv1.SideSell, 2500, 5)
	submit(t, e, "s3", orderv1.SideSell, 2600, 5)

	// Buy 12 @ $25.50 sweeps the 24.00 and 25.00 levels, then rests.
	r := submit(t, e, "buyer", orderv1.SideBuy, 2550, 12)
	require.Len(t, r.Trades, 2)
	assert.Equal(t, fixedpoint.Amount(2400), r.Trades[0].Price)
	assert.Equal(t, fixedpoint.Amount(2500), r.Trades[1].Price)

	assert.True(t, r.Rested())
	assert.Equal(t, orderv1.StatusPartial, r.Order.Status)
	assert.Equal(t, fixedpoint.FromUnits(2), r.Order.Remaining)

	// The untouched 26.00 ask is still the best ask.
	snap := e.Book().Snapshot()
	assert.Equal(t, fixedpoint.Amount(2600), snap.BestAsk)
	assert.Equal(t, fixedpoint.Amount(2550), snap.BestBid)
}

// Conservation: the sum of executed quantities equals the quantity
// deducted from both sides, and the book never rests crossed.
func TestEngine_SubmitOrder_Conservation(t *testing.T) {
	e := newTestEngine(t)

	submit(t, e, "s1", orderv1.SideSell, 2400, 7)
	submit(t, e, "s2", orderv1.SideSell, 2450, 9)

	incoming := submit(t, e, "buyer", orderv1.SideBuy, 2500, 10)

	var executed fixedpoint.Amount
	for _, trade := range incoming.Trades {
		executed += trade.Quantity
	}
	assert.Equal(t, incoming.Order.Quantity-incoming.Order.Remaining, executed)

	var touchedFilled fixedpoint.Amount
	for _, o := range incoming.Touched {
		touchedFilled += o.Quantity - o.Remaining
	}
	assert.Equal(t, executed, touchedFilled)

	// Post-state: best bid < best ask whenever both sides are non-empty.
	snap := e.Book().Snapshot()
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		assert.Less(t, snap.BestBid, snap.BestAsk)
	}
}

func TestEngine_CancelOrder(t *testing.T) {
	t.Run("owner cancels resting order", func(t *testing.T) {
		e := newTestEngine(t)
		r := submit(t, e, "alice", orderv1.SideBuy, 2500, 10)

		cancelled, err := e.CancelOrder(r.Order.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, orderv1.StatusCancelled, cancelled.Status)
		assert.Equal(t, 0, e.Book().Len())
	})

	t.Run("unknown order is a benign no-op", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := e.CancelOrder("missing", "alice")
		assert.ErrorIs(t, err, orderv1.ErrOrderNotFound)
	})

	t.Run("non-owner is rejected without mutation", func(t *testing.T) {
		e := newTestEngine(t)
		r := submit(t, e, "alice", orderv1.SideBuy, 2500, 10)

		_, err := e.CancelOrder(r.Order.ID, "mallory")
		assert.ErrorIs(t, err, orderv1.ErrNotOwner)

		// Order still resting, still matchable.
		o, err := e.Book().GetOrder(r.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, orderv1.StatusPending, o.Status)
	})

	t.Run("filled order can no longer be cancelled", func(t *testing.T) {
		e := newTestEngine(t)
		r := submit(t, e, "alice", orderv1.SideBuy, 2500, 5)
		submit(t, e, "bob", orderv1.SideSell, 2500, 5)

		_, err := e.CancelOrder(r.Order.ID, "alice")
		assert.ErrorIs(t, err, orderv1.ErrOrderNotFound)
	})
}

func TestEngine_AmendOrder(t *testing.T) {
	t.Run("reduce keeps priority", func(t *testing.T) {
		e := newTestEngine(t)
		first := submit(t, e, "alice", orderv1.SideSell, 2500, 10)
		submit(t, e, "bob", orderv1.SideSell, 2500, 10)

		_, err := e.AmendOrder(first.Order.ID, "alice", fixedpoint.FromUnits(4))
		require.NoError(t, err)

		r := submit(t, e, "carol", orderv1.SideBuy, 2500, 4)
		require.Len(t, r.Trades, 1)
		assert.Equal(t, first.Order.ID, r.Trades[0].SellOrderID)
	})

	t.Run("increase rejected", func(t *testing.T) {
		e := newTestEngine(t)
		r := submit(t, e, "alice", orderv1.SideSell, 2500, 10)

		_, err := e.AmendOrder(r.Order.ID, "alice", fixedpoint.FromUnits(20))
		assert.ErrorIs(t, err, orderv1.ErrInvalidQuantity)
	})

	t.Run("reduce to zero removes as cancelled", func(t *testing.T) {
		e := newTestEngine(t)
		r := submit(t, e, "alice", orderv1.SideSell, 2500, 10)

		amended, err := e.AmendOrder(r.Order.ID, "alice", 0)
		require.NoError(t, err)
		assert.Equal(t, orderv1.StatusCancelled, amended.Status)
		assert.Equal(t, 0, e.Book().Len())
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		e := newTestEngine(t)
		r := submit(t, e, "alice", orderv1.SideSell, 2500, 10)

		_, err := e.AmendOrder(r.Order.ID, "mallory", fixedpoint.FromUnits(4))
		assert.ErrorIs(t, err, orderv1.ErrNotOwner)
	})
}

func TestEngine_ExpireDue(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	stale, err := e.SubmitOrder("alice", orderv1.SideBuy, testInstrument,
		fixedpoint.Amount(2500), fixedpoint.FromUnits(10), &past)
	require.NoError(t, err)
	fresh, err := e.SubmitOrder("bob", orderv1.SideBuy, testInstrument,
		fixedpoint.Amount(2400), fixedpoint.FromUnits(10), &future)
	require.NoError(t, err)

	expired := e.ExpireDue(now)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.Order.ID, expired[0].ID)
	assert.Equal(t, orderv1.StatusExpired, expired[0].Status)

	_, err = e.Book().GetOrder(fresh.Order.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, e.Book().Len())
}

// An expired resting order must not execute, even before the sweep
// removes it: the crossing order passes over it and rests.
func TestEngine_SubmitOrder_SkipsExpiredResting(t *testing.T) {
	e := newTestEngine(t)
	past := time.Now().Add(-time.Minute)

	stale, err := e.SubmitOrder("alice", orderv1.SideSell, testInstrument,
		fixedpoint.Amount(2500), fixedpoint.FromUnits(10), &past)
	require.NoError(t, err)

	r := submit(t, e, "bob", orderv1.SideBuy, 2500, 10)
	assert.Empty(t, r.Trades)
	assert.True(t, r.Rested())

	// The sweep still owns removal; the stale order is untouched until then.
	o, err := e.Book().GetOrder(stale.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.FromUnits(10), o.Remaining)

	expired := e.ExpireDue(time.Now())
	require.Len(t, expired, 1)
	assert.Equal(t, stale.Order.ID, expired[0].ID)
}

// Persisted snapshots read concurrently with matching must never capture
// a resting order mid-fill: remaining, status and level totals move
// together under the book's write lock.
func TestEngine_SnapshotDuringMatching(t *testing.T) {
	e := newTestEngine(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			snap := e.Book().CreateSnapshot()
			for _, bo := range snap.Orders {
				remaining, err := fixedpoint.FromString(bo.Remaining)
				if !assert.NoError(t, err) {
					continue
				}
				quantity, err := fixedpoint.FromString(bo.Quantity)
				if !assert.NoError(t, err) {
					continue
				}
				assert.True(t, remaining.IsPositive(),
					"snapshot holds order %s with non-positive remaining", bo.OrderID)
				assert.LessOrEqual(t, int64(remaining), int64(quantity))
				assert.True(t, orderv1.Status(bo.Status).IsOpen(),
					"snapshot holds closed order %s (%s)", bo.OrderID, bo.Status)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		if i%2 == 0 {
			submit(t, e, "maker", orderv1.SideBuy, 2500, 3)
		} else {
			submit(t, e, "taker", orderv1.SideSell, 2500, 5)
		}
	}

	close(done)
	wg.Wait()
}

func TestEngine_TradeIDsMonotonic(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 10; i++ {
		submit(t, e, fmt.Sprintf("s%d", i), orderv1.SideSell, 2500, 1)
	}
	r := submit(t, e, "buyer", orderv1.SideBuy, 2500, 10)
	require.Len(t, r.Trades, 10)

	for i := 1; i < len(r.Trades); i++ {
		assert.Less(t, r.Trades[i-1].ID, r.Trades[i].ID)
	}
}

func BenchmarkEngine_SubmitOrder(b *testing.B) {
	e := newTestEngine(b)

	// Seed a book with resting depth on both sides.
	for i := int64(0); i < 100; i++ {
		submit(b, e, "seed", orderv1.SideBuy, 2400-i, 10)
		submit(b, e, "seed", orderv1.SideSell, 2600+i, 10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Alternate crossing buys and replenishing sells.
		if i%2 == 0 {
			_, _ = e.SubmitOrder("bench", orderv1.SideBuy, testInstrument,
				fixedpoint.Amount(2600), fixedpoint.FromUnits(1), nil)
		} else {
			_, _ = e.SubmitOrder("bench", orderv1.SideSell, testInstrument,
				fixedpoint.Amount(2600), fixedpoint.FromUnits(1), nil)
		}
	}
}
