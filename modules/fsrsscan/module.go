// Package fsrsscan implements the pump-probe delay scan. Every delay point
// yields one excited-state spectrum per set; in fsrs mode each set opens
// with a single ground-state spectrum taken while the actinic shutter is
// still closed. Files follow the historical naming convention, with a
// sorted timepoints companion file, so the legacy analysis chain keeps
// working.
package fsrsscan

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/dataio"
	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/registry"
	"github.com/vk/gofsrs/internal/scan"
	"github.com/vk/gofsrs/internal/spectro"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the experiment.
type Config struct {
	Camera   string `hcl:"camera"`
	Axis     string `hcl:"axis"`
	Shutter  string `hcl:"shutter"`
	Mode     string `hcl:"mode,optional"`
	Frames   int    `hcl:"frames,optional"`
	Sets     int    `hcl:"sets,optional"`
	Basename string `hcl:"basename"`
	// Reference names an optional input read once per point, typically a
	// photodiode watching pump power. Its trace is saved alongside the scan.
	Reference string     `hcl:"reference,optional"`
	Delay     scan.Range `hcl:"delay,block"`
}

// Scan is a configured instance of the experiment.
type Scan struct {
	name string
	cfg  Config
	mode spectro.Mode
	kind dataio.SpectrumKind
}

// New validates the config and builds the experiment.
func New(name string, cfg *Config) (*Scan, error) {
	mode, err := spectro.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if mode == spectro.Kerr {
		return nil, fmt.Errorf("fsrs_scan does not support kerr mode, use xc_scan")
	}
	if err := cfg.Delay.Validate(); err != nil {
		return nil, fmt.Errorf("delay range: %w", err)
	}
	s := &Scan{name: name, cfg: *cfg, mode: mode, kind: dataio.KindTA}
	if mode == spectro.FSRS {
		s.kind = dataio.KindFSRS
	}
	if s.cfg.Frames <= 0 {
		s.cfg.Frames = 2000
	}
	if s.cfg.Sets <= 0 {
		s.cfg.Sets = 1
	}
	return s, nil
}

// Name implements experiment.Experiment.
func (s *Scan) Name() string { return s.name }

// Run implements experiment.Experiment.
func (s *Scan) Run(ctx context.Context, env *experiment.Env) (err error) {
	logger := ctxlog.FromContext(ctx)

	cam, err := env.Devices.Camera(s.cfg.Camera)
	if err != nil {
		return err
	}
	axis, err := env.Devices.Axis(s.cfg.Axis)
	if err != nil {
		return err
	}
	shutter, err := env.Devices.Output(s.cfg.Shutter)
	if err != nil {
		return err
	}
	var reference device.Input
	if s.cfg.Reference != "" {
		reference, err = env.Devices.Input(s.cfg.Reference)
		if err != nil {
			return err
		}
	}

	// Probe the point count once; randomized ranges are regenerated per set
	// so every set walks the delays in its own order.
	points, err := s.cfg.Delay.Generate()
	if err != nil {
		return err
	}

	// The downstream analysis chain rebuilds the delay axis from this
	// companion file, always in ascending order regardless of scan order.
	sorted := append([]float64(nil), points...)
	sort.Float64s(sorted)
	tpPath := filepath.Join(env.DataDir, s.cfg.Basename+"_timepoints.txt")
	if err := dataio.SaveColumns(tpPath, sorted); err != nil {
		return err
	}
	env.Record.AddFile(tpPath)

	env.Progress.Start(fmt.Sprintf("scan %s", s.name), s.cfg.Sets*len(points))
	defer env.Progress.Finish()

	defer func() {
		cleanupCtx := ctxlog.WithLogger(context.Background(), logger)
		if moveErr := axis.MoveTo(cleanupCtx, 0); moveErr != nil && err == nil {
			err = moveErr
		}
		if shutErr := shutter.Write(cleanupCtx, 0); shutErr != nil && err == nil {
			err = shutErr
		}
	}()

	refMeans := make(map[float64]*spectro.Accumulator)

	for set := 0; set < s.cfg.Sets; set++ {
		if set > 0 {
			if points, err = s.cfg.Delay.Generate(); err != nil {
				return err
			}
		}
		for i, delay := range points {
			if err := axis.MoveTo(ctx, delay); err != nil {
				return fmt.Errorf("set %d delay %g: %w", set, delay, err)
			}
			if err := device.Settle(ctx, axis); err != nil {
				return err
			}

			// One ground-state spectrum per set, recorded at the first
			// stop while the actinic shutter is still closed. Excited
			// spectra only from then on.
			if i == 0 && s.kind == dataio.KindFSRS {
				if err := s.record(ctx, env, cam, shutter, 0, set, false); err != nil {
					return err
				}
			}
			if err := s.record(ctx, env, cam, shutter, delay, set, true); err != nil {
				return err
			}

			if reference != nil {
				v, err := reference.Read(ctx)
				if err != nil {
					return fmt.Errorf("reference read at delay %g: %w", delay, err)
				}
				acc, ok := refMeans[delay]
				if !ok {
					acc = &spectro.Accumulator{}
					refMeans[delay] = acc
				}
				if err := acc.Add([]float64{v}); err != nil {
					return err
				}
			}
			env.Progress.Step()
		}
	}

	if reference != nil {
		if err := s.saveReference(env, refMeans); err != nil {
			return err
		}
	}

	logger.Info("Delay scan finished.",
		"experiment", s.name, "sets", s.cfg.Sets, "points", len(points))
	return nil
}

// record acquires one spectrum at the current delay and saves it under the
// historical per-point name.
func (s *Scan) record(ctx context.Context, env *experiment.Env, cam device.Camera, shutter device.Output, delay float64, set int, open bool) error {
	level := 0.0
	if open {
		level = 1.0
	}
	if err := shutter.Write(ctx, level); err != nil {
		return err
	}

	frame, err := cam.ReadFrames(ctx, s.cfg.Frames)
	if err != nil {
		return fmt.Errorf("delay %g set %d: %w", delay, set, err)
	}
	signal := spectro.Transform(s.mode, frame.Ratio)

	name := dataio.FormatScanName(s.kind, s.cfg.Basename, delay, set, open)
	path := filepath.Join(env.DataDir, name+".txt")
	if err := dataio.SaveColumns(path, signal, frame.PumpOn, frame.PumpOff); err != nil {
		return err
	}
	env.Record.AddFile(path)

	env.Stream.Publish("fsrsscan", map[string]any{
		"experiment": s.name,
		"delay":      delay,
		"set":        set,
		"excited":    open,
		"band":       spectro.BandIntegral(signal),
	})
	return nil
}

// saveReference writes the per-delay mean of the reference input in
// ascending delay order.
func (s *Scan) saveReference(env *experiment.Env, means map[float64]*spectro.Accumulator) error {
	delays := make([]float64, 0, len(means))
	for delay := range means {
		delays = append(delays, delay)
	}
	sort.Float64s(delays)

	rows := make([][]float64, 0, len(means))
	for _, delay := range delays {
		rows = append(rows, means[delay].Mean())
	}

	path := filepath.Join(env.DataDir, s.cfg.Basename+"_ref.txt")
	if err := dataio.SaveMap(path, delays, rows); err != nil {
		return err
	}
	env.Record.AddFile(path)
	return nil
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("fsrs_scan", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
