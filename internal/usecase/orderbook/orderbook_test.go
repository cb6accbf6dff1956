package orderbook

import (
	"fmt"
	"sync"
	"testing"
	"time"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstrument = "VCS-2026"

// Helper to create a test order with a specific id. Prices accept cents so
// tests can express values like $24.99.
func createTestOrder(id string, side orderv1.Side, priceCents, qtyUnits int64) *orderv1.Order {
	return orderv1.NewOrder(id, "owner-"+id, testInstrument, side,
		fixedpoint.Amount(priceCents), fixedpoint.FromUnits(qtyUnits))
}

func TestNewOrderBook(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	assert.NotNil(t, ob)
	assert.Equal(t, testInstrument, ob.InstrumentID())
	assert.Equal(t, 0, ob.Len())
}

func TestOrderBook_AddOrder(t *testing.T) {
	t.Run("assigns increasing sequence", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)

		a := createTestOrder("a", orderv1.SideBuy, 2500, 10)
		b := createTestOrder("b", orderv1.SideBuy, 2500, 5)
		require.NoError(t, ob.AddOrder(a))
		require.NoError(t, ob.AddOrder(b))

		assert.Equal(t, int64(1), a.Sequence)
		assert.Equal(t, int64(2), b.Sequence)
		assert.Equal(t, 2, ob.Len())
	})

	t.Run("rejects invalid order", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)

		bad := createTestOrder("a", orderv1.SideBuy, 0, 10)
		assert.ErrorIs(t, ob.AddOrder(bad), orderv1.ErrInvalidPrice)
		assert.Equal(t, 0, ob.Len())
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)

		require.NoError(t, ob.AddOrder(createTestOrder("a", orderv1.SideBuy, 2500, 10)))
		assert.ErrorIs(t, ob.AddOrder(createTestOrder("a", orderv1.SideSell, 2600, 5)),
			orderv1.ErrDuplicateOrder)
	})
}

func TestOrderBook_RemoveOrder(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	t.Run("unknown order", func(t *testing.T) {
		_, err := ob.RemoveOrder("missing")
		assert.ErrorIs(t, err, orderv1.ErrOrderNotFound)
	})

	t.Run("empty level is dropped", func(t *testing.T) {
		require.NoError(t, ob.AddOrder(createTestOrder("a", orderv1.SideBuy, 2500, 10)))

		removed, err := ob.RemoveOrder("a")
		require.NoError(t, err)
		assert.Equal(t, "a", removed.ID)
		assert.Equal(t, 0, ob.Len())

		snap := ob.Snapshot()
		assert.Empty(t, snap.Bids)
	})
}

func TestOrderBook_UpdateOrder(t *testing.T) {
	t.Run("reduce keeps FIFO position", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)

		a := createTestOrder("a", orderv1.SideBuy, 2500, 10)
		b := createTestOrder("b", orderv1.SideBuy, 2500, 5)
		require.NoError(t, ob.AddOrder(a))
		require.NoError(t, ob.AddOrder(b))

		require.NoError(t, ob.UpdateOrder("a", fixedpoint.FromUnits(4)))
		assert.Equal(t, fixedpoint.FromUnits(4), a.Remaining)

		// "a" is still first in line at its level.
		incoming := createTestOrder("s", orderv1.SideSell, 2500, 1)
		assert.Equal(t, "a", ob.BestMatch(incoming).ID)
	})

	t.Run("zero remaining removes the order", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)

		require.NoError(t, ob.AddOrder(createTestOrder("a", orderv1.SideBuy, 2500, 10)))
		require.NoError(t, ob.UpdateOrder("a", 0))

		assert.Equal(t, 0, ob.Len())
		_, err := ob.GetOrder("a")
		assert.ErrorIs(t, err, orderv1.ErrOrderNotFound)
	})

	t.Run("negative remaining rejected", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)
		require.NoError(t, ob.AddOrder(createTestOrder("a", orderv1.SideBuy, 2500, 10)))

		assert.ErrorIs(t, ob.UpdateOrder("a", -1), orderv1.ErrInvalidQuantity)
	})
}

func TestOrderBook_ApplyFill(t *testing.T) {
	t.Run("partial fill advances order and level together", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)
		o := createTestOrder("a", orderv1.SideBuy, 2500, 10)
		require.NoError(t, ob.AddOrder(o))

		require.NoError(t, ob.ApplyFill("a", fixedpoint.FromUnits(4)))

		assert.Equal(t, fixedpoint.FromUnits(6), o.Remaining)
		assert.Equal(t, orderv1.StatusPartial, o.Status)
		snap := ob.Snapshot()
		assert.Equal(t, fixedpoint.FromUnits(6), snap.TotalBidQty)
	})

	t.Run("full fill completes and removes the order", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)
		o := createTestOrder("a", orderv1.SideBuy, 2500, 10)
		require.NoError(t, ob.AddOrder(o))

		require.NoError(t, ob.ApplyFill("a", fixedpoint.FromUnits(10)))

		assert.Equal(t, orderv1.StatusCompleted, o.Status)
		assert.Equal(t, 0, ob.Len())
		_, err := ob.GetOrder("a")
		assert.ErrorIs(t, err, orderv1.ErrOrderNotFound)
	})

	t.Run("over-fill and non-positive quantities rejected", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)
		o := createTestOrder("a", orderv1.SideBuy, 2500, 10)
		require.NoError(t, ob.AddOrder(o))

		assert.ErrorIs(t, ob.ApplyFill("a", fixedpoint.FromUnits(11)), orderv1.ErrInvalidQuantity)
		assert.ErrorIs(t, ob.ApplyFill("a", 0), orderv1.ErrInvalidQuantity)
		assert.Equal(t, fixedpoint.FromUnits(10), o.Remaining)
	})

	t.Run("unknown order", func(t *testing.T) {
		ob := NewOrderBook(testInstrument)
		assert.ErrorIs(t, ob.ApplyFill("missing", fixedpoint.FromUnits(1)), orderv1.ErrOrderNotFound)
	})
}

func TestOrderBook_FindMatches(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	// Asks at 24.00, 25.00, 26.00; bids never match same-side.
	require.NoError(t, ob.AddOrder(createTestOrder("s1", orderv1.SideSell, 2400, 5)))
	require.NoError(t, ob.AddOrder(createTestOrder("s2", orderv1.SideSell, 2500, 5)))
	require.NoError(t, ob.AddOrder(createTestOrder("s3", orderv1.SideSell, 2600, 5)))
	require.NoError(t, ob.AddOrder(createTestOrder("b1", orderv1.SideBuy, 2300, 5)))

	t.Run("buy collects crossing asks in price order", func(t *testing.T) {
		incoming := createTestOrder("in", orderv1.SideBuy, 2500, 20)
		matches := ob.FindMatches(incoming)

		require.Len(t, matches, 2)
		assert.Equal(t, "s1", matches[0].ID)
		assert.Equal(t, "s2", matches[1].ID)
	})

	t.Run("no crossing levels", func(t *testing.T) {
		incoming := createTestOrder("in", orderv1.SideBuy, 2300, 20)
		assert.Empty(t, ob.FindMatches(incoming))
	})

	t.Run("sell scans bids descending", func(t *testing.T) {
		incoming := createTestOrder("in", orderv1.SideSell, 2200, 20)
		matches := ob.FindMatches(incoming)

		require.Len(t, matches, 1)
		assert.Equal(t, "b1", matches[0].ID)
	})

	t.Run("expired resting orders are skipped", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		stale := createTestOrder("s0", orderv1.SideSell, 2400, 5)
		stale.ExpiresAt = &past
		require.NoError(t, ob.AddOrder(stale))

		incoming := createTestOrder("in", orderv1.SideBuy, 2500, 20)
		matches := ob.FindMatches(incoming)

		require.Len(t, matches, 2)
		assert.Equal(t, "s1", matches[0].ID)
		assert.Equal(t, "s2", matches[1].ID)
	})
}

func TestOrderBook_FindMatches_FIFOWithinLevel(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	// Scenario: two sells at the same price, then a crossing buy. The
	// earlier sell must be first in the match list.
	a := createTestOrder("A", orderv1.SideSell, 2500, 5)
	b := createTestOrder("B", orderv1.SideSell, 2500, 5)
	require.NoError(t, ob.AddOrder(a))
	require.NoError(t, ob.AddOrder(b))

	incoming := createTestOrder("in", orderv1.SideBuy, 2500, 7)
	matches := ob.FindMatches(incoming)

	require.Len(t, matches, 2)
	assert.Equal(t, "A", matches[0].ID)
	assert.Equal(t, "B", matches[1].ID)
	assert.Less(t, a.Sequence, b.Sequence)
}

func TestOrderBook_Snapshot(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	require.NoError(t, ob.AddOrder(createTestOrder("b1", orderv1.SideBuy, 2500, 10)))
	require.NoError(t, ob.AddOrder(createTestOrder("b2", orderv1.SideBuy, 2400, 5)))
	require.NoError(t, ob.AddOrder(createTestOrder("s1", orderv1.SideSell, 2600, 8)))
	require.NoError(t, ob.AddOrder(createTestOrder("s2", orderv1.SideSell, 2700, 2)))

	snap := ob.Snapshot()

	// Bids descending, asks ascending.
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, fixedpoint.Amount(2500), snap.Bids[0].Price)
	assert.Equal(t, fixedpoint.Amount(2400), snap.Bids[1].Price)
	assert.Equal(t, fixedpoint.Amount(2600), snap.Asks[0].Price)
	assert.Equal(t, fixedpoint.Amount(2700), snap.Asks[1].Price)

	assert.Equal(t, fixedpoint.Amount(2500), snap.BestBid)
	assert.Equal(t, fixedpoint.Amount(2600), snap.BestAsk)
	assert.Equal(t, fixedpoint.Amount(100), snap.Spread) // $1.00
	assert.Equal(t, fixedpoint.FromUnits(15), snap.TotalBidQty)
	assert.Equal(t, fixedpoint.FromUnits(10), snap.TotalAskQty)

	t.Run("cached until mutation", func(t *testing.T) {
		again := ob.Snapshot()
		assert.Same(t, snap, again)

		require.NoError(t, ob.AddOrder(createTestOrder("b3", orderv1.SideBuy, 2450, 1)))
		fresh := ob.Snapshot()
		assert.NotSame(t, snap, fresh)
		require.Len(t, fresh.Bids, 3)
	})

	t.Run("empty book has zero spread", func(t *testing.T) {
		empty := NewOrderBook(testInstrument).Snapshot()
		assert.Equal(t, fixedpoint.Amount(0), empty.BestBid)
		assert.Equal(t, fixedpoint.Amount(0), empty.BestAsk)
		assert.Equal(t, fixedpoint.Amount(0), empty.Spread)
	})
}

func TestOrderBook_SnapshotImbalance(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	require.NoError(t, ob.AddOrder(createTestOrder("b1", orderv1.SideBuy, 2500, 30)))
	require.NoError(t, ob.AddOrder(createTestOrder("s1", orderv1.SideSell, 2600, 10)))

	snap := ob.Snapshot()
	assert.InDelta(t, 0.5, snap.Imbalance(), 1e-9)

	empty := NewOrderBook(testInstrument).Snapshot()
	assert.Equal(t, 0.0, empty.Imbalance())
}

func TestOrderBook_CreateSnapshotRestore(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	require.NoError(t, ob.AddOrder(createTestOrder("b1", orderv1.SideBuy, 2500, 10)))
	require.NoError(t, ob.AddOrder(createTestOrder("s1", orderv1.SideSell, 2600, 8)))
	require.NoError(t, ob.AddOrder(createTestOrder("b2", orderv1.SideBuy, 2500, 4)))

	snap := ob.CreateSnapshot()
	require.Len(t, snap.Orders, 3)
	assert.Equal(t, int64(3), snap.OrderSeq)

	// Orders serialize in insertion sequence.
	assert.Equal(t, "b1", snap.Orders[0].OrderID)
	assert.Equal(t, "s1", snap.Orders[1].OrderID)
	assert.Equal(t, "b2", snap.Orders[2].OrderID)

	restored := NewOrderBook(testInstrument)
	require.NoError(t, restored.Restore(snap))

	assert.Equal(t, 3, restored.Len())

	// FIFO within the 25.00 bid level survives the round trip.
	incoming := createTestOrder("in", orderv1.SideSell, 2500, 1)
	assert.Equal(t, "b1", restored.BestMatch(incoming).ID)

	// New orders continue the sequence rather than reusing it.
	next := createTestOrder("b3", orderv1.SideBuy, 2500, 1)
	require.NoError(t, restored.AddOrder(next))
	assert.Equal(t, int64(4), next.Sequence)
}

func TestOrderBook_ExpiredOrders(t *testing.T) {
	ob := NewOrderBook(testInstrument)
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	expired := createTestOrder("old", orderv1.SideBuy, 2500, 10)
	expired.ExpiresAt = &past
	alive := createTestOrder("new", orderv1.SideBuy, 2500, 10)
	alive.ExpiresAt = &future
	forever := createTestOrder("forever", orderv1.SideBuy, 2500, 10)

	require.NoError(t, ob.AddOrder(expired))
	require.NoError(t, ob.AddOrder(alive))
	require.NoError(t, ob.AddOrder(forever))

	due := ob.ExpiredOrders(now)
	require.Len(t, due, 1)
	assert.Equal(t, "old", due[0].ID)
}

func TestOrderBook_ConcurrentSnapshotReads(t *testing.T) {
	ob := NewOrderBook(testInstrument)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				o := createTestOrder(fmt.Sprintf("w%d-%d", n, j), orderv1.SideBuy,
					2400+int64(j%10), 1)
				_ = ob.AddOrder(o)
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = ob.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, ob.Len())
}
