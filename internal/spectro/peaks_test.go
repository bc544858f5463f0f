package spectro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gaussian builds a sampled Gaussian trace over delays.
func gaussian(delays []float64, center, sigma float64) []float64 {
	out := make([]float64, len(delays))
	for i, d := range delays {
		out[i] = math.Exp(-(d - center) * (d - center) / (2 * sigma * sigma))
	}
	return out
}

func delayAxis(from, to, step float64) []float64 {
	var out []float64
	for d := from; d <= to; d += step {
		out = append(out, d)
	}
	return out
}

func TestEstimatePeak(t *testing.T) {
	t.Parallel()

	delays := delayAxis(-500, 500, 10)
	est, err := EstimatePeak(delays, gaussian(delays, 40, 80))
	require.NoError(t, err)

	// Moment estimates of a well-sampled Gaussian recover its parameters.
	assert.InDelta(t, 40, est.Position, 5)
	assert.InDelta(t, fwhmFactor*80, est.Width, 15)

	t.Run("flat trace has no peak", func(t *testing.T) {
		t.Parallel()
		_, err := EstimatePeak([]float64{0, 1, 2}, []float64{5, 5, 5})
		require.ErrorContains(t, err, "flat trace")
	})

	t.Run("length mismatch is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := EstimatePeak([]float64{0, 1}, []float64{1})
		require.ErrorContains(t, err, "does not match")
	})
}

func TestEstimateChirp(t *testing.T) {
	t.Parallel()

	// Build a map whose peak arrives 100 fs later at the last pixel than at
	// the first, a typical red-shifted-later probe chirp.
	delays := delayAxis(-500, 500, 10)
	const pixels = 16
	data := make([][]float64, len(delays))
	for row := range data {
		data[row] = make([]float64, pixels)
	}
	for px := 0; px < pixels; px++ {
		center := -50 + 100*float64(px)/float64(pixels-1)
		col := gaussian(delays, center, 60)
		for row := range data {
			data[row][px] = col[row]
		}
	}

	report, err := EstimateChirp(delays, data)
	require.NoError(t, err)

	require.Len(t, report.Peaks, pixels)
	assert.InDelta(t, 100, report.Dispersion, 15)
	assert.InDelta(t, fwhmFactor*60, report.MeanWidth, 15)
	assert.True(t, report.RedShiftedLater)

	t.Run("empty map is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := EstimateChirp(nil, nil)
		require.ErrorContains(t, err, "empty delay map")
	})
}
