// Package focus implements the alignment live stream: short camera
// acquisitions in a tight loop, each pushed to the live websocket stream.
// Nothing is saved; the run ends when stopped or when the configured chunk
// count is reached.
package focus

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/registry"
	"github.com/vk/gofsrs/internal/spectro"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the experiment.
type Config struct {
	Camera string `hcl:"camera"`
	Mode   string `hcl:"mode,optional"`
	// Frames per chunk; small values keep the stream responsive.
	Frames int `hcl:"frames,optional"`
	// Chunks bounds the stream; zero streams until stopped.
	Chunks int `hcl:"chunks,optional"`
	// Calibration points at a spectrograph calibration file; when set, the
	// stream carries the physical axis instead of pixel indices.
	Calibration string `hcl:"calibration,optional"`
}

// Focus is a configured instance of the experiment.
type Focus struct {
	name string
	cfg  Config
	mode spectro.Mode
	cal  *spectro.Calibration
}

// New validates the config and builds the experiment.
func New(name string, cfg *Config) (*Focus, error) {
	mode, err := spectro.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if mode == spectro.Kerr {
		return nil, fmt.Errorf("focus does not support kerr mode")
	}
	f := &Focus{name: name, cfg: *cfg, mode: mode}
	if cfg.Calibration != "" {
		if f.cal, err = spectro.LoadCalibration(cfg.Calibration); err != nil {
			return nil, err
		}
	}
	if f.cfg.Frames <= 0 {
		f.cfg.Frames = 80
	}
	return f, nil
}

// Name implements experiment.Experiment.
func (f *Focus) Name() string { return f.name }

// Run implements experiment.Experiment.
func (f *Focus) Run(ctx context.Context, env *experiment.Env) error {
	logger := ctxlog.FromContext(ctx)

	cam, err := env.Devices.Camera(f.cfg.Camera)
	if err != nil {
		return err
	}

	total := f.cfg.Chunks
	if total <= 0 {
		total = -1
	}
	env.Progress.Start(fmt.Sprintf("focus %s", f.name), total)
	defer env.Progress.Finish()

	logger.Info("Focus stream started.", "experiment", f.name, "frames_per_chunk", f.cfg.Frames)

	var axis []float64
	for chunk := 0; f.cfg.Chunks <= 0 || chunk < f.cfg.Chunks; chunk++ {
		frame, err := cam.ReadFrames(ctx, f.cfg.Frames)
		if err != nil {
			// A stop request ends the stream cleanly.
			if errors.Is(err, context.Canceled) {
				logger.Info("Focus stream stopped.", "experiment", f.name, "chunks", chunk)
				return nil
			}
			return err
		}

		if axis == nil {
			if f.cal != nil {
				if axis, err = f.cal.AxisFor(frame.Pixels()); err != nil {
					return err
				}
			} else {
				axis = spectro.PixelAxis(frame.Pixels())
			}
		}

		signal := spectro.Transform(f.mode, frame.Ratio)
		env.Stream.Publish("focus", map[string]any{
			"experiment": f.name,
			"chunk":      chunk,
			"axis":       axis,
			"signal":     signal,
			"band":       spectro.BandIntegral(signal),
		})
		env.Progress.Step()
	}

	logger.Info("Focus stream finished.", "experiment", f.name, "chunks", f.cfg.Chunks)
	return nil
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("focus", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
