package orderv1

import (
	"testing"
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/stretchr/testify/assert"
)

func TestSide(t *testing.T) {
	assert.True(t, SideBuy.Valid())
	assert.True(t, SideSell.Valid())
	assert.False(t, Side("hold").Valid())

	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

func TestOrder_Fill(t *testing.T) {
	o := NewOrder("o1", "alice", "VCS-2026", SideBuy,
		fixedpoint.Amount(2500), fixedpoint.FromUnits(10))
	assert.Equal(t, StatusPending, o.Status)

	o.Fill(fixedpoint.FromUnits(4))
	assert.Equal(t, StatusPartial, o.Status)
	assert.Equal(t, fixedpoint.FromUnits(6), o.Remaining)

	o.Fill(fixedpoint.FromUnits(6))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.True(t, o.IsFilled())
}

func TestOrder_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	o := NewOrder("o1", "alice", "VCS-2026", SideBuy,
		fixedpoint.Amount(2500), fixedpoint.FromUnits(10))
	assert.False(t, o.IsExpired(now), "orders without expiry never expire")

	o.ExpiresAt = &past
	assert.True(t, o.IsExpired(now))
	assert.False(t, o.IsExpired(past.Add(-time.Second)))
}
