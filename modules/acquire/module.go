// Package acquire implements the static acquisition: M sets of N camera
// frames averaged into one spectrum. Each set is saved individually and the
// running average over all sets is saved as the final result, so a run that
// is stopped early still leaves usable data behind.
package acquire

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/dataio"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/registry"
	"github.com/vk/gofsrs/internal/spectro"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the experiment.
type Config struct {
	Camera   string `hcl:"camera"`
	Mode     string `hcl:"mode,optional"`
	Frames   int    `hcl:"frames,optional"`
	Sets     int    `hcl:"sets,optional"`
	Basename string `hcl:"basename"`
	// Calibration points at a spectrograph calibration file; when set, the
	// physical axis is written as the first column of every saved spectrum.
	Calibration string `hcl:"calibration,optional"`
}

// Acquire is a configured instance of the experiment.
type Acquire struct {
	name string
	cfg  Config
	mode spectro.Mode
	cal  *spectro.Calibration
}

// New validates the config and builds the experiment.
func New(name string, cfg *Config) (*Acquire, error) {
	mode, err := spectro.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if mode == spectro.Kerr {
		return nil, fmt.Errorf("acquire does not support kerr mode")
	}
	a := &Acquire{name: name, cfg: *cfg, mode: mode}
	if cfg.Calibration != "" {
		if a.cal, err = spectro.LoadCalibration(cfg.Calibration); err != nil {
			return nil, err
		}
	}
	if a.cfg.Frames <= 0 {
		a.cfg.Frames = 8000
	}
	if a.cfg.Sets <= 0 {
		a.cfg.Sets = 1
	}
	return a, nil
}

// Name implements experiment.Experiment.
func (a *Acquire) Name() string { return a.name }

// Run implements experiment.Experiment.
func (a *Acquire) Run(ctx context.Context, env *experiment.Env) error {
	logger := ctxlog.FromContext(ctx)

	cam, err := env.Devices.Camera(a.cfg.Camera)
	if err != nil {
		return err
	}

	env.Progress.Start(fmt.Sprintf("acquire %s", a.name), a.cfg.Sets)
	defer env.Progress.Finish()

	var avgSignal, avgOn, avgOff spectro.Accumulator

	for set := 0; set < a.cfg.Sets; set++ {
		frame, err := cam.ReadFrames(ctx, a.cfg.Frames)
		if err != nil {
			return fmt.Errorf("set %d: %w", set, err)
		}

		signal := spectro.Transform(a.mode, frame.Ratio)
		if err := avgSignal.Add(signal); err != nil {
			return err
		}
		if err := avgOn.Add(frame.PumpOn); err != nil {
			return err
		}
		if err := avgOff.Add(frame.PumpOff); err != nil {
			return err
		}

		if a.cfg.Sets > 1 {
			path := filepath.Join(env.DataDir, fmt.Sprintf("%s_%d.txt", a.cfg.Basename, set))
			if err := a.save(path, signal, frame.PumpOn, frame.PumpOff); err != nil {
				return err
			}
			env.Record.AddFile(path)
		}

		env.Stream.Publish("acquire", map[string]any{
			"experiment": a.name,
			"set":        set,
			"band":       spectro.BandIntegral(signal),
		})
		env.Progress.Step()
	}

	path := filepath.Join(env.DataDir, a.cfg.Basename+".txt")
	if err := a.save(path, avgSignal.Mean(), avgOn.Mean(), avgOff.Mean()); err != nil {
		return err
	}
	env.Record.AddFile(path)

	logger.Info("Acquisition finished.",
		"experiment", a.name, "sets", avgSignal.Count(), "file", path)
	return nil
}

// save writes a spectrum, prefixed with the calibrated axis when one is
// configured.
func (a *Acquire) save(path string, columns ...[]float64) error {
	if a.cal == nil {
		return dataio.SaveColumns(path, columns...)
	}
	axis, err := a.cal.AxisFor(len(columns[0]))
	if err != nil {
		return err
	}
	return dataio.SaveColumns(path, append([][]float64{axis}, columns...)...)
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("acquire", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
