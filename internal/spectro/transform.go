// Package spectro holds the pixel math shared by the measurement modules:
// mode transforms of chopped camera frames, incremental set averaging, band
// integrals, Kerr background subtraction and peak moment estimates.
package spectro

import (
	"fmt"
	"math"
)

// Mode is the spectroscopic interpretation of the pump-on/pump-off ratio.
type Mode string

const (
	// FSRS reports Raman gain, -ln(ratio).
	FSRS Mode = "fsrs"
	// TA reports absorbance change, -log10(ratio).
	TA Mode = "ta"
	// Transmission reports the raw ratio T/T0.
	Transmission Mode = "t/t0"
	// Kerr reports the background-subtracted mean of both frames.
	Kerr Mode = "kerr"
)

// ParseMode maps a rig-file string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case FSRS, TA, Transmission, Kerr:
		return Mode(s), nil
	case "":
		return FSRS, nil
	}
	return "", fmt.Errorf("unknown measurement mode %q", s)
}

// Transform applies the mode's pixel transform to a copy of the ratio
// column. Non-finite results are scrubbed to zero so that a dead pixel never
// poisons an output file.
func Transform(mode Mode, ratio []float64) []float64 {
	out := make([]float64, len(ratio))
	for i, v := range ratio {
		switch mode {
		case FSRS:
			out[i] = -math.Log(v)
		case TA:
			out[i] = -math.Log10(v)
		default:
			out[i] = v
		}
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			out[i] = 0
		}
	}
	return out
}

// BandIntegral returns the mean of the trace, the single scalar a camera
// reports when used as a plain input device.
func BandIntegral(trace []float64) float64 {
	if len(trace) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range trace {
		sum += v
	}
	return sum / float64(len(trace))
}

// KerrSignal returns 0.5*(pumpOn+pumpOff) - background per pixel. A nil
// background is treated as zero.
func KerrSignal(pumpOn, pumpOff, background []float64) []float64 {
	out := make([]float64, len(pumpOn))
	for i := range out {
		out[i] = 0.5 * (pumpOn[i] + pumpOff[i])
		if background != nil {
			out[i] -= background[i]
		}
	}
	return out
}
