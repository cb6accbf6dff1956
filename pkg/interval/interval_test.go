package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInterval(t *testing.T) {
	for _, iv := range AllIntervals {
		got, err := GetInterval(iv.Name)
		require.NoError(t, err)
		assert.Equal(t, iv, got)
		assert.True(t, IsValidInterval(iv.Name))
	}

	_, err := GetInterval("2h")
	assert.Error(t, err)
	assert.False(t, IsValidInterval("2h"))
}

func TestInterval_BucketTime(t *testing.T) {
	ts := time.Date(2026, 3, 15, 10, 47, 33, 123, time.UTC)

	tests := []struct {
		iv   Interval
		want time.Time
	}{
		{Interval1m, time.Date(2026, 3, 15, 10, 47, 0, 0, time.UTC)},
		{Interval5m, time.Date(2026, 3, 15, 10, 45, 0, 0, time.UTC)},
		{Interval15m, time.Date(2026, 3, 15, 10, 45, 0, 0, time.UTC)},
		{Interval1h, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)},
		{Interval1d, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.iv.Name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.iv.BucketTime(ts))
		})
	}
}

func TestInterval_BucketTimeNormalizesZone(t *testing.T) {
	zone := time.FixedZone("UTC+7", 7*3600)
	local := time.Date(2026, 3, 15, 17, 30, 0, 0, zone)

	// 17:30 UTC+7 is 10:30 UTC; the hourly bucket starts at 10:00 UTC.
	assert.Equal(t, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		Interval1h.BucketTime(local))
}

func TestInterval_SameBucket(t *testing.T) {
	a := time.Date(2026, 3, 15, 10, 5, 0, 0, time.UTC)
	b := time.Date(2026, 3, 15, 10, 55, 0, 0, time.UTC)
	c := time.Date(2026, 3, 15, 11, 1, 0, 0, time.UTC)

	assert.True(t, Interval1h.SameBucket(a, b))
	assert.False(t, Interval1h.SameBucket(b, c))
	assert.True(t, Interval1d.SameBucket(a, c))
}
