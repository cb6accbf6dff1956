// Package stats derives market statistics from confirmed trades: VWAP,
// price change, OHLC buckets, moving average and volatility. Everything
// here is a read-only derivation — statistics never feed back into
// matching and never block it.
package stats

import (
	"errors"
	"sort"
	"sync"
	"time"

	tradev1 "github.com/azaynul10/CarbonPro-AI/internal/domain/trade/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/azaynul10/CarbonPro-AI/pkg/interval"
	"github.com/shopspring/decimal"
)

// ErrNoData is the sentinel returned when a window holds too few trades to
// derive the requested statistic.
var ErrNoData = errors.New("stats: no data in window")

// Change is a price movement over a window.
type Change struct {
	Absolute decimal.Decimal
	Percent  float64
}

// Bucket is a per-interval OHLC aggregate.
type Bucket struct {
	Start      time.Time
	Open       fixedpoint.Amount
	High       fixedpoint.Amount
	Low        fixedpoint.Amount
	Close      fixedpoint.Amount
	Volume     fixedpoint.Amount
	TradeCount int64
}

type instrumentStats struct {
	trades []*tradev1.Trade // ring buffer, oldest at head
	head   int
	count  int

	buckets map[time.Time]*Bucket
}

// MarketStats maintains rolling trade history and bucket aggregates per
// instrument.
type MarketStats struct {
	mu           sync.RWMutex
	historyDepth int
	bucket       interval.Interval
	now          func() time.Time
	instruments  map[string]*instrumentStats
}

// Option configures a MarketStats.
type Option func(*MarketStats)

// WithBucketInterval overrides the aggregation interval (default hourly).
func WithBucketInterval(iv interval.Interval) Option {
	return func(m *MarketStats) { m.bucket = iv }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *MarketStats) { m.now = now }
}

// NewMarketStats creates a stats engine keeping the last historyDepth
// trades per instrument. A non-positive depth is clamped to 1.
func NewMarketStats(historyDepth int, opts ...Option) *MarketStats {
	if historyDepth <= 0 {
		historyDepth = 1
	}
	m := &MarketStats{
		historyDepth: historyDepth,
		bucket:       interval.Interval1h,
		now:          time.Now,
		instruments:  make(map[string]*instrumentStats),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordTrade appends a confirmed trade to the instrument's history,
// dropping the oldest on overflow, and updates the active bucket
// aggregate.
func (m *MarketStats) RecordTrade(t *tradev1.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()

	is := m.instruments[t.InstrumentID]
	if is == nil {
		is = &instrumentStats{
			trades:  make([]*tradev1.Trade, m.historyDepth),
			buckets: make(map[time.Time]*Bucket),
		}
		m.instruments[t.InstrumentID] = is
	}

	if is.count < m.historyDepth {
		is.trades[(is.head+is.count)%m.historyDepth] = t
		is.count++
	} else {
		is.trades[is.head] = t
		is.head = (is.head + 1) % m.historyDepth
	}

	start := m.bucket.BucketTime(t.ExecutedAt)
	b := is.buckets[start]
	if b == nil {
		b = &Bucket{
			Start: start,
			Open:  t.Price,
			High:  t.Price,
			Low:   t.Price,
		}
		is.buckets[start] = b
	}
	if t.Price > b.High {
		b.High = t.Price
	}
	if t.Price < b.Low {
		b.Low = t.Price
	}
	b.Close = t.Price
	b.Volume += t.Quantity
	b.TradeCount++
}

// VWAP computes the volume-weighted average price over trades executed
// within the trailing window. Returns ErrNoData when the window holds no
// trades — never a division by zero.
func (m *MarketStats) VWAP(instrumentID string, window time.Duration) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trades := m.tradesInWindowLocked(instrumentID, window)
	if len(trades) == 0 {
		return decimal.Zero, ErrNoData
	}

	notional := decimal.Zero
	volume := decimal.Zero
	for _, t := range trades {
		notional = notional.Add(t.Price.Decimal().Mul(t.Quantity.Decimal()))
		volume = volume.Add(t.Quantity.Decimal())
	}
	if volume.IsZero() {
		return decimal.Zero, ErrNoData
	}
	return notional.Div(volume), nil
}

// PriceChange returns the last trade price minus the price of the oldest
// trade still within the window, in absolute and percentage form. Requires
// at least 2 trades in range.
func (m *MarketStats) PriceChange(instrumentID string, window time.Duration) (Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trades := m.tradesInWindowLocked(instrumentID, window)
	if len(trades) < 2 {
		return Change{}, ErrNoData
	}

	oldest := trades[0].Price.Decimal()
	last := trades[len(trades)-1].Price.Decimal()
	abs := last.Sub(oldest)

	change := Change{Absolute: abs}
	if !oldest.IsZero() {
		change.Percent, _ = abs.Div(oldest).Mul(decimal.NewFromInt(100)).Float64()
	}
	return change, nil
}

// LastPrice returns the most recent trade price for the instrument.
func (m *MarketStats) LastPrice(instrumentID string) (fixedpoint.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	is := m.instruments[instrumentID]
	if is == nil || is.count == 0 {
		return 0, ErrNoData
	}
	last := is.trades[(is.head+is.count-1)%m.historyDepth]
	return last.Price, nil
}

// RecentPrices returns up to n most recent trade prices, oldest first, as
// a float64 series for the moving-average/volatility analytics.
func (m *MarketStats) RecentPrices(instrumentID string, n int) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	is := m.instruments[instrumentID]
	if is == nil || is.count == 0 {
		return nil
	}

	count := is.count
	if n < count {
		count = n
	}
	prices := make([]float64, 0, count)
	for i := is.count - count; i < is.count; i++ {
		prices = append(prices, is.trades[(is.head+i)%m.historyDepth].Price.Float64())
	}
	return prices
}

// Buckets returns the instrument's OHLC aggregates sorted by bucket start.
func (m *MarketStats) Buckets(instrumentID string) []Bucket {
	m.mu.RLock()
	defer m.mu.RUnlock()

	is := m.instruments[instrumentID]
	if is == nil {
		return nil
	}

	buckets := make([]Bucket, 0, len(is.buckets))
	for _, b := range is.buckets {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}

// tradesInWindowLocked returns the trades with timestamp >= now-window,
// oldest first. Caller holds at least the read lock.
func (m *MarketStats) tradesInWindowLocked(instrumentID string, window time.Duration) []*tradev1.Trade {
	is := m.instruments[instrumentID]
	if is == nil {
		return nil
	}

	cutoff := m.now().Add(-window)
	var trades []*tradev1.Trade
	for i := 0; i < is.count; i++ {
		t := is.trades[(is.head+i)%m.historyDepth]
		if !t.ExecutedAt.Before(cutoff) {
			trades = append(trades, t)
		}
	}
	return trades
}
