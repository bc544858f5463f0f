package spectro

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// PeakEstimate holds the intensity-weighted moment estimate of a single
// wavelength column of a delay map.
type PeakEstimate struct {
	Position float64 // first moment along the delay axis
	Width    float64 // FWHM assuming a Gaussian-like peak
}

// ChirpReport summarises the peak estimates over all wavelength columns.
// Dispersion is the spread of peak positions across the detector, the probe
// chirp; the width statistics estimate the instrument response.
type ChirpReport struct {
	Peaks      []PeakEstimate
	Dispersion float64
	MeanWidth  float64
	WidthStdev float64
	// RedShiftedLater is true when the peak arrives later at higher pixel
	// index, which tells the operator which way to adjust the compressor.
	RedShiftedLater bool
}

// fwhmFactor converts a Gaussian sigma into full width at half maximum.
var fwhmFactor = 2 * math.Sqrt(2*math.Log(2))

// EstimatePeak computes the baseline-subtracted intensity-weighted first and
// second moments of trace over the delay axis.
func EstimatePeak(delays, trace []float64) (PeakEstimate, error) {
	if len(delays) != len(trace) {
		return PeakEstimate{}, fmt.Errorf("delay axis length %d does not match trace length %d", len(delays), len(trace))
	}
	if len(delays) < 2 {
		return PeakEstimate{}, fmt.Errorf("need at least 2 delay points, got %d", len(delays))
	}

	baseline, err := stats.Min(trace)
	if err != nil {
		return PeakEstimate{}, err
	}

	var wsum, tsum float64
	for i, v := range trace {
		w := v - baseline
		wsum += w
		tsum += w * delays[i]
	}
	if wsum == 0 {
		return PeakEstimate{}, fmt.Errorf("flat trace, no peak to estimate")
	}
	pos := tsum / wsum

	var vsum float64
	for i, v := range trace {
		w := v - baseline
		vsum += w * (delays[i] - pos) * (delays[i] - pos)
	}
	sigma := math.Sqrt(vsum / wsum)

	return PeakEstimate{Position: pos, Width: fwhmFactor * sigma}, nil
}

// EstimateChirp runs EstimatePeak over every wavelength column of a delay
// map. Rows of data correspond to entries of delays, columns to pixels.
func EstimateChirp(delays []float64, data [][]float64) (ChirpReport, error) {
	if len(data) == 0 {
		return ChirpReport{}, fmt.Errorf("empty delay map")
	}
	if len(data) != len(delays) {
		return ChirpReport{}, fmt.Errorf("delay map has %d rows for %d delay points", len(data), len(delays))
	}

	pixels := len(data[0])
	report := ChirpReport{Peaks: make([]PeakEstimate, pixels)}
	positions := make([]float64, pixels)
	widths := make([]float64, pixels)
	trace := make([]float64, len(delays))

	for px := 0; px < pixels; px++ {
		for row := range data {
			trace[row] = data[row][px]
		}
		est, err := EstimatePeak(delays, trace)
		if err != nil {
			return ChirpReport{}, fmt.Errorf("pixel %d: %w", px, err)
		}
		report.Peaks[px] = est
		positions[px] = est.Position
		widths[px] = est.Width
	}

	minPos, err := stats.Min(positions)
	if err != nil {
		return ChirpReport{}, err
	}
	maxPos, _ := stats.Max(positions)
	report.Dispersion = maxPos - minPos
	report.MeanWidth, _ = stats.Mean(widths)
	report.WidthStdev, _ = stats.StandardDeviation(widths)
	report.RedShiftedLater = positions[pixels-1] > positions[0]
	return report, nil
}
