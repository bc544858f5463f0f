// Package scan generates the delay-stage target positions for a measurement
// from the rig's stage parameters: linear stepping, logarithmic spacing, or
// an explicit list loaded from a text file, optionally visited in random
// order.
package scan

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Mode selects how target positions are generated.
type Mode string

const (
	// Linear steps from Start towards Stop with a fixed Step size. The end
	// point is adjusted so that it lies on the step grid.
	Linear Mode = "linear"
	// Logarithmic places Points positions log-spaced between Start and Stop.
	Logarithmic Mode = "logarithmic"
	// FromFile reads positions from the first column of File.
	FromFile Mode = "file"
)

// Range describes a delay scan axis. Units are the stage's native unit,
// femtoseconds for delay stages.
type Range struct {
	Mode   Mode    `hcl:"mode,optional"`
	Start  float64 `hcl:"from,optional"`
	Stop   float64 `hcl:"to,optional"`
	Step   float64 `hcl:"step,optional"`
	Points int     `hcl:"points,optional"`
	File   string  `hcl:"file,optional"`
	Random bool    `hcl:"random,optional"`
}

// Validate checks the range parameters for the selected mode.
func (r Range) Validate() error {
	mode := r.Mode
	if mode == "" {
		mode = Linear
	}
	switch mode {
	case Linear:
		if r.Step == 0 {
			return fmt.Errorf("linear scan requires a non-zero step")
		}
	case Logarithmic:
		if r.Points < 2 {
			return fmt.Errorf("logarithmic scan requires at least 2 points, got %d", r.Points)
		}
		if r.Start <= 0 || r.Stop <= 0 {
			return fmt.Errorf("logarithmic scan requires positive bounds, got %g..%g", r.Start, r.Stop)
		}
	case FromFile:
		if r.File == "" {
			return fmt.Errorf("file scan requires a file path")
		}
	default:
		return fmt.Errorf("unknown scan mode %q", r.Mode)
	}
	return nil
}

// Generate returns the target positions for the range. The returned slice is
// already shuffled when Random is set.
func (r Range) Generate() ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var pts []float64
	mode := r.Mode
	if mode == "" {
		mode = Linear
	}
	switch mode {
	case Linear:
		pts = linspace(r.Start, r.Stop, r.Step)
	case Logarithmic:
		pts = logspace(r.Start, r.Stop, r.Points)
	case FromFile:
		var err error
		pts, err = loadColumn(r.File)
		if err != nil {
			return nil, err
		}
	}

	if r.Random {
		rand.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })
	}
	return pts, nil
}

// linspace yields at least two points, with the end point snapped onto the
// step grid so that stop = start + (n-1)*step. The sign of the step follows
// the scan direction, so the generated points always walk towards Stop.
func linspace(start, stop, step float64) []float64 {
	step = math.Copysign(step, stop-start)
	n := int(math.Abs(stop-start)/math.Abs(step)) + 1
	if n < 2 {
		n = 2
	}
	pts := make([]float64, n)
	for i := range pts {
		pts[i] = start + float64(i)*step
	}
	return pts
}

func logspace(start, stop float64, n int) []float64 {
	lo := math.Log10(start)
	hi := math.Log10(stop)
	pts := make([]float64, n)
	for i := range pts {
		f := float64(i) / float64(n-1)
		pts[i] = math.Pow(10, lo+f*(hi-lo))
	}
	return pts
}

// loadColumn reads the first whitespace-delimited column of a text file.
// Blank lines and lines starting with '#' are skipped.
func loadColumn(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan point file: %w", err)
	}
	defer f.Close()

	var pts []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid scan point %q: %w", path, line, fields[0], err)
		}
		pts = append(pts, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan point file: %w", err)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("scan point file %s contains no points", path)
	}
	return pts, nil
}
