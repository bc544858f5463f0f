// Package gridoptimize implements an iterative two-dimensional grid search
// that minimizes an input signal over a pair of axes, for example walking a
// mirror mount until a photodiode reads the deepest dip. Each pass visits a
// coarse grid, then the search domain shrinks around the running minimum
// until the improvement falls below the function tolerance, the domain
// narrows below the parameter tolerance, or the pass budget runs out.
package gridoptimize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/dataio"
	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/registry"
	"github.com/vk/gofsrs/internal/scan"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the experiment.
type Config struct {
	Input    string `hcl:"input"`
	AxisX    string `hcl:"axis_x"`
	AxisY    string `hcl:"axis_y"`
	Basename string `hcl:"basename"`
	// MaxIterations bounds the number of shrink-and-rescan passes.
	MaxIterations int `hcl:"max_iterations,optional"`
	// FunctionTolerance stops the search once a pass improves the minimum
	// by less than this amount without making it worse.
	FunctionTolerance float64 `hcl:"function_tolerance,optional"`
	// ParameterTolerance stops the search once the widest domain side is
	// narrower than this; below the instrument precision further shrinking
	// is noise chasing.
	ParameterTolerance float64 `hcl:"parameter_tolerance,optional"`
	// ConvergencePower is the factor each domain side shrinks by between
	// passes.
	ConvergencePower float64 `hcl:"convergence_power,optional"`
	// Random visits the grid in random order instead of nearest-first.
	Random bool       `hcl:"random,optional"`
	X      scan.Range `hcl:"x,block"`
	Y      scan.Range `hcl:"y,block"`
}

// Optimizer is a configured instance of the experiment.
type Optimizer struct {
	name string
	cfg  Config
}

// New validates the config and builds the experiment.
func New(name string, cfg *Config) (*Optimizer, error) {
	for _, r := range []struct {
		label string
		rng   scan.Range
	}{{"x", cfg.X}, {"y", cfg.Y}} {
		if r.rng.Mode != "" && r.rng.Mode != scan.Linear {
			return nil, fmt.Errorf("%s range: grid axes must use linear ranges", r.label)
		}
		if err := r.rng.Validate(); err != nil {
			return nil, fmt.Errorf("%s range: %w", r.label, err)
		}
	}
	o := &Optimizer{name: name, cfg: *cfg}
	if o.cfg.MaxIterations <= 0 {
		o.cfg.MaxIterations = 20
	}
	if o.cfg.FunctionTolerance <= 0 {
		o.cfg.FunctionTolerance = 0.03
	}
	if o.cfg.ParameterTolerance <= 0 {
		o.cfg.ParameterTolerance = 0.1
	}
	if o.cfg.ConvergencePower == 0 {
		o.cfg.ConvergencePower = 2
	}
	if o.cfg.ConvergencePower <= 1 {
		return nil, fmt.Errorf("convergence power must be greater than 1, got %g", o.cfg.ConvergencePower)
	}
	return o, nil
}

// Name implements experiment.Experiment.
func (o *Optimizer) Name() string { return o.name }

// span is one side of the rectangular search domain.
type span struct {
	lo, hi float64
}

func (s span) width() float64 { return s.hi - s.lo }

// shrink narrows the span around center by the given factor, clamped to the
// original bounds so the search never leaves the configured travel range.
func (s span) shrink(center, power float64, orig span) span {
	half := s.width() / power / 2
	out := span{lo: center - half, hi: center + half}
	if out.lo < orig.lo {
		out.lo = orig.lo
	}
	if out.hi > orig.hi {
		out.hi = orig.hi
	}
	return out
}

// points places n evenly spaced positions across the span.
func (s span) points(n int) []float64 {
	pts := make([]float64, n)
	if n == 1 {
		pts[0] = (s.lo + s.hi) / 2
		return pts
	}
	for i := range pts {
		pts[i] = s.lo + float64(i)*s.width()/float64(n-1)
	}
	return pts
}

func spanOf(pts []float64) span {
	s := span{lo: pts[0], hi: pts[0]}
	for _, p := range pts[1:] {
		s.lo = math.Min(s.lo, p)
		s.hi = math.Max(s.hi, p)
	}
	return s
}

// sample is one visited grid point.
type sample struct {
	x, y, v float64
}

// Run implements experiment.Experiment.
func (o *Optimizer) Run(ctx context.Context, env *experiment.Env) (err error) {
	logger := ctxlog.FromContext(ctx)

	input, err := env.Devices.Input(o.cfg.Input)
	if err != nil {
		return err
	}
	axisX, err := env.Devices.Axis(o.cfg.AxisX)
	if err != nil {
		return err
	}
	axisY, err := env.Devices.Axis(o.cfg.AxisY)
	if err != nil {
		return err
	}

	xs, err := o.cfg.X.Generate()
	if err != nil {
		return err
	}
	ys, err := o.cfg.Y.Generate()
	if err != nil {
		return err
	}
	origX, origY := spanOf(xs), spanOf(ys)
	domX, domY := origX, origY
	nx, ny := len(xs), len(ys)

	// The pass count depends on convergence, so the progress display is a
	// spinner rather than a bar.
	env.Progress.Start(fmt.Sprintf("grid optimize %s", o.name), -1)
	defer env.Progress.Finish()

	defer func() {
		cleanupCtx := ctxlog.WithLogger(context.Background(), logger)
		if moveErr := axisX.MoveTo(cleanupCtx, 0); moveErr != nil && err == nil {
			err = moveErr
		}
		if moveErr := axisY.MoveTo(cleanupCtx, 0); moveErr != nil && err == nil {
			err = moveErr
		}
	}()

	var visited []sample
	center := [2]float64{(domX.lo + domX.hi) / 2, (domY.lo + domY.hi) / 2}
	fmin := math.Inf(1)
	best := sample{v: math.Inf(1)}
	passes := 0

	for pass := 0; pass < o.cfg.MaxIterations; pass++ {
		passes = pass + 1
		grid := o.buildGrid(domX.points(nx), domY.points(ny), center)

		passBest := sample{v: math.Inf(1)}
		for _, pt := range grid {
			if err := axisX.MoveTo(ctx, pt.x); err != nil {
				return fmt.Errorf("pass %d point (%g, %g): %w", pass, pt.x, pt.y, err)
			}
			if err := axisY.MoveTo(ctx, pt.y); err != nil {
				return fmt.Errorf("pass %d point (%g, %g): %w", pass, pt.x, pt.y, err)
			}
			if err := device.Settle(ctx, axisX); err != nil {
				return err
			}
			if err := device.Settle(ctx, axisY); err != nil {
				return err
			}

			v, err := input.Read(ctx)
			if err != nil {
				return fmt.Errorf("pass %d point (%g, %g): %w", pass, pt.x, pt.y, err)
			}
			pt.v = v
			visited = append(visited, pt)
			if v < passBest.v {
				passBest = pt
			}

			env.Stream.Publish("gridoptimize", map[string]any{
				"experiment": o.name,
				"pass":       pass,
				"x":          pt.x,
				"y":          pt.y,
				"value":      v,
			})
			env.Progress.Step()
		}

		if passBest.v < best.v {
			best = passBest
		}
		center = [2]float64{passBest.x, passBest.y}
		widest := math.Max(domX.width(), domY.width())

		logger.Info("Grid pass finished.",
			"experiment", o.name, "pass", passes,
			"minimum", passBest.v, "x", passBest.x, "y", passBest.y,
			"previous", fmin, "domain_width", widest)

		switch {
		case passBest.v > fmin || passBest.v < fmin-o.cfg.FunctionTolerance:
			// Still moving (or got worse): close in around the pass
			// minimum and rescan.
			domX = domX.shrink(passBest.x, o.cfg.ConvergencePower, origX)
			domY = domY.shrink(passBest.y, o.cfg.ConvergencePower, origY)
		case math.Abs(fmin-passBest.v) <= o.cfg.FunctionTolerance && passBest.v <= fmin:
			logger.Info("Grid search converged.", "experiment", o.name, "passes", passes)
			return o.finish(env, logger, visited, best, passes)
		}
		if widest < o.cfg.ParameterTolerance {
			logger.Info("Grid domain reached the parameter tolerance.",
				"experiment", o.name, "passes", passes)
			return o.finish(env, logger, visited, best, passes)
		}
		fmin = passBest.v
	}

	logger.Warn("Grid search stopped at the pass budget without converging.",
		"experiment", o.name, "passes", passes)
	return o.finish(env, logger, visited, best, passes)
}

// buildGrid pairs every x with every y and orders the visit nearest-first
// from the current center, or randomly when configured.
func (o *Optimizer) buildGrid(xs, ys []float64, center [2]float64) []sample {
	grid := make([]sample, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			grid = append(grid, sample{x: x, y: y})
		}
	}
	if o.cfg.Random {
		rand.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
		return grid
	}
	sort.Slice(grid, func(i, j int) bool {
		di := (grid[i].x-center[0])*(grid[i].x-center[0]) + (grid[i].y-center[1])*(grid[i].y-center[1])
		dj := (grid[j].x-center[0])*(grid[j].x-center[0]) + (grid[j].y-center[1])*(grid[j].y-center[1])
		return di < dj
	})
	return grid
}

// finish saves the visited points and reports the best one found.
func (o *Optimizer) finish(env *experiment.Env, logger *slog.Logger, visited []sample, best sample, passes int) error {
	xs := make([]float64, len(visited))
	ys := make([]float64, len(visited))
	vs := make([]float64, len(visited))
	for i, pt := range visited {
		xs[i] = pt.x
		ys[i] = pt.y
		vs[i] = pt.v
	}

	path := filepath.Join(env.DataDir, o.cfg.Basename+".txt")
	if err := dataio.SaveColumns(path, xs, ys, vs); err != nil {
		return err
	}
	env.Record.AddFile(path)

	env.Stream.Publish("gridoptimize.best", map[string]any{
		"experiment": o.name,
		"x":          best.x,
		"y":          best.y,
		"value":      best.v,
		"passes":     passes,
	})
	logger.Info("Grid optimization finished.",
		"experiment", o.name, "minimum", best.v, "x", best.x, "y", best.y,
		"points", len(visited), "file", path)
	return nil
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("grid_optimize", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
