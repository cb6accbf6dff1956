// Package interval provides time-bucket calculation and OHLC aggregation
// for the market statistics engine.
package interval

import (
	"fmt"
	"time"
)

// Interval represents a time interval for bucketed aggregates.
type Interval struct {
	Name     string
	Duration time.Duration
}

// Supported intervals.
var (
	Interval1m  = Interval{Name: "1m", Duration: time.Minute}
	Interval5m  = Interval{Name: "5m", Duration: 5 * time.Minute}
	Interval15m = Interval{Name: "15m", Duration: 15 * time.Minute}
	Interval1h  = Interval{Name: "1h", Duration: time.Hour}
	Interval1d  = Interval{Name: "1d", Duration: 24 * time.Hour}
)

// AllIntervals lists every supported interval.
var AllIntervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval1h, Interval1d,
}

var intervalRegistry = make(map[string]Interval)

func init() {
	for _, iv := range AllIntervals {
		intervalRegistry[iv.Name] = iv
	}
}

// GetInterval returns an interval by name.
func GetInterval(name string) (Interval, error) {
	iv, exists := intervalRegistry[name]
	if !exists {
		return Interval{}, fmt.Errorf("unsupported interval: %s", name)
	}
	return iv, nil
}

// IsValidInterval checks whether the interval name is supported.
func IsValidInterval(name string) bool {
	_, exists := intervalRegistry[name]
	return exists
}

// BucketTime calculates the bucket start time for the given timestamp.
// Buckets are aligned in UTC.
func (i Interval) BucketTime(timestamp time.Time) time.Time {
	return timestamp.UTC().Truncate(i.Duration)
}

// SameBucket reports whether two timestamps fall into the same bucket.
func (i Interval) SameBucket(a, b time.Time) bool {
	return i.BucketTime(a).Equal(i.BucketTime(b))
}
