package dataio

import (
	"fmt"
	"math"
)

// SpectrumKind distinguishes the two historical filename flavours.
type SpectrumKind int

const (
	// KindFSRS names ground/excited Raman spectra.
	KindFSRS SpectrumKind = iota
	// KindTA names transient absorption and dT/T spectra.
	KindTA
)

// FormatScanName reproduces the historical naming convention for per-point
// scan files so that the generated files stay compatible with the legacy
// LabView analysis chain: basename_(p|m)<|delay|>(gr|exc|_)<set>.
//
// The sign prefix is "p" for positive delays and "m" for negative ones; a
// zero delay counts as negative for TA spectra and for excited-state FSRS
// spectra.
func FormatScanName(kind SpectrumKind, basename string, delay float64, set int, shutterOpen bool) string {
	name := basename + "_"

	switch {
	case delay > 0:
		name += "p"
	case delay < 0:
		name += "m"
	case shutterOpen || kind == KindTA:
		name += "m"
	}

	name += fmt.Sprintf("%d", int(math.Abs(delay)))

	if kind == KindFSRS {
		if shutterOpen {
			name += "exc"
		} else {
			name += "gr"
		}
	} else {
		name += "_"
	}

	return name + fmt.Sprintf("%d", set)
}
