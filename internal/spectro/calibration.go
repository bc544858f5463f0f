package spectro

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Calibration maps detector pixels onto a physical axis, typically
// wavenumbers. It is loaded from a YAML file written by the spectrograph
// calibration procedure: either an explicit per-pixel axis or polynomial
// coefficients in ascending order.
type Calibration struct {
	Unit         string    `yaml:"unit"`
	Axis         []float64 `yaml:"axis,omitempty"`
	Coefficients []float64 `yaml:"coefficients,omitempty"`
}

// LoadCalibration reads and validates a calibration file.
func LoadCalibration(path string) (*Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	var cal Calibration
	if err := yaml.Unmarshal(raw, &cal); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	if len(cal.Axis) == 0 && len(cal.Coefficients) == 0 {
		return nil, fmt.Errorf("calibration file %s defines neither an axis nor coefficients", path)
	}
	return &cal, nil
}

// AxisFor returns the physical axis for a detector of the given width. An
// explicit axis must match the width exactly; a polynomial is evaluated per
// pixel.
func (c *Calibration) AxisFor(pixels int) ([]float64, error) {
	if len(c.Axis) > 0 {
		if len(c.Axis) != pixels {
			return nil, fmt.Errorf("calibration axis has %d entries for a %d pixel detector", len(c.Axis), pixels)
		}
		out := make([]float64, pixels)
		copy(out, c.Axis)
		return out, nil
	}
	out := make([]float64, pixels)
	for px := range out {
		x := float64(px)
		v := 0.0
		for i := len(c.Coefficients) - 1; i >= 0; i-- {
			v = v*x + c.Coefficients[i]
		}
		out[px] = v
	}
	return out, nil
}

// PixelAxis is the identity axis used when no calibration is configured.
func PixelAxis(pixels int) []float64 {
	out := make([]float64, pixels)
	for px := range out {
		out[px] = float64(px)
	}
	return out
}
