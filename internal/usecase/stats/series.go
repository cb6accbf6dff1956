package stats

import "math"

// MovingAverage returns the simple moving average over the trailing window
// points of the series. Returns ErrNoData when the series holds fewer
// points than the window.
func MovingAverage(points []float64, window int) (float64, error) {
	if window <= 0 || len(points) < window {
		return 0, ErrNoData
	}

	sum := 0.0
	for _, p := range points[len(points)-window:] {
		sum += p
	}
	return sum / float64(window), nil
}

// Volatility returns the sample standard deviation over the trailing
// window points of the series. Requires at least 2 points in the window.
func Volatility(points []float64, window int) (float64, error) {
	if window < 2 || len(points) < window {
		return 0, ErrNoData
	}

	tail := points[len(points)-window:]
	mean, err := MovingAverage(tail, window)
	if err != nil {
		return 0, err
	}

	sumSq := 0.0
	for _, p := range tail {
		d := p - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(window-1)), nil
}
