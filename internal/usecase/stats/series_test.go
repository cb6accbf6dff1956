package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name    string
		points  []float64
		window  int
		want    float64
		wantErr error
	}{
		{"empty series", nil, 3, 0, ErrNoData},
		{"window larger than series", []float64{25, 26}, 3, 0, ErrNoData},
		{"zero window", []float64{25, 26}, 0, 0, ErrNoData},
		{"exact window", []float64{25, 26, 27}, 3, 26, nil},
		{"trailing window", []float64{10, 20, 25, 26, 27}, 3, 26, nil},
		{"window of one", []float64{25, 26, 27}, 1, 27, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MovingAverage(tc.points, tc.window)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestVolatility(t *testing.T) {
	t.Run("requires at least two points", func(t *testing.T) {
		_, err := Volatility([]float64{25}, 1)
		assert.ErrorIs(t, err, ErrNoData)

		_, err = Volatility([]float64{25}, 2)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("constant series has zero volatility", func(t *testing.T) {
		vol, err := Volatility([]float64{25, 25, 25, 25}, 4)
		require.NoError(t, err)
		assert.Equal(t, 0.0, vol)
	})

	t.Run("sample standard deviation", func(t *testing.T) {
		// Points 2,4,4,4,5,5,7,9: mean 5, sample variance 32/7.
		vol, err := Volatility([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
		require.NoError(t, err)
		assert.InDelta(t, 2.13809, vol, 1e-4)
	})

	t.Run("uses only the trailing window", func(t *testing.T) {
		// The wild early points are outside the window.
		vol, err := Volatility([]float64{1000, -1000, 25, 25, 25}, 3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, vol)
	})
}
