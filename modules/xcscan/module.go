// Package xcscan implements the cross-correlation delay scan: a 2D map of
// camera signal versus pump-probe delay. Kerr mode records a shutter-closed
// background first and reports the probe chirp estimated from the finished
// map, which is how the instrument response is dialled in.
package xcscan

import (
	"context"
	"fmt"
	"path/filepath"

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
	Camera   string     `hcl:"camera"`
	Axis     string     `hcl:"axis"`
	Shutter  string     `hcl:"shutter"`
	Mode     string     `hcl:"mode,optional"`
	Frames   int        `hcl:"frames,optional"`
	Basename string     `hcl:"basename"`
	Fit      bool       `hcl:"fit,optional"`
	Delay    scan.Range `hcl:"delay,block"`
}

// XCScan is a configured instance of the experiment.
type XCScan struct {
	name string
	cfg  Config
	mode spectro.Mode
}

// New validates the config and builds the experiment.
func New(name string, cfg *Config) (*XCScan, error) {
	mode, err := spectro.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if err := cfg.Delay.Validate(); err != nil {
		return nil, fmt.Errorf("delay range: %w", err)
	}
	x := &XCScan{name: name, cfg: *cfg, mode: mode}
	if x.cfg.Frames <= 0 {
		x.cfg.Frames = 100
	}
	if x.cfg.Mode == "" {
		x.mode = spectro.Kerr
	}
	return x, nil
}

// Name implements experiment.Experiment.
func (x *XCScan) Name() string { return x.name }

// Run implements experiment.Experiment.
func (x *XCScan) Run(ctx context.Context, env *experiment.Env) (err error) {
	logger := ctxlog.FromContext(ctx)

	cam, err := env.Devices.Camera(x.cfg.Camera)
	if err != nil {
		return err
	}
	axis, err := env.Devices.Axis(x.cfg.Axis)
	if err != nil {
		return err
	}
	shutter, err := env.Devices.Output(x.cfg.Shutter)
	if err != nil {
		return err
	}

	points, err := x.cfg.Delay.Generate()
	if err != nil {
		return err
	}

	env.Progress.Start(fmt.Sprintf("xc scan %s", x.name), len(points))
	defer env.Progress.Finish()

	// Whatever happens, park the stage and close the shutter. Use a fresh
	// context so a cancelled run still cleans up.
	defer func() {
		cleanupCtx := ctxlog.WithLogger(context.Background(), logger)
		if moveErr := axis.MoveTo(cleanupCtx, 0); moveErr != nil && err == nil {
			err = moveErr
		}
		if shutErr := shutter.Write(cleanupCtx, 0); shutErr != nil && err == nil {
			err = shutErr
		}
	}()

	var background []float64
	if x.mode == spectro.Kerr {
		if err := shutter.Write(ctx, 0); err != nil {
			return err
		}
		frame, err := cam.ReadFrames(ctx, x.cfg.Frames)
		if err != nil {
			return fmt.Errorf("background frame: %w", err)
		}
		background = spectro.KerrSignal(frame.PumpOn, frame.PumpOff, nil)
		logger.Debug("Kerr background recorded.", "pixels", len(background))
	}

	if err := shutter.Write(ctx, 1); err != nil {
		return err
	}

	data := make([][]float64, 0, len(points))
	for i, delay := range points {
		if err := axis.MoveTo(ctx, delay); err != nil {
			return fmt.Errorf("delay %g: %w", delay, err)
		}
		if err := device.Settle(ctx, axis); err != nil {
			return err
		}

		frame, err := cam.ReadFrames(ctx, x.cfg.Frames)
		if err != nil {
			return fmt.Errorf("delay %g: %w", delay, err)
		}

		var trace []float64
		if x.mode == spectro.Kerr {
			trace = spectro.KerrSignal(frame.PumpOn, frame.PumpOff, background)
		} else {
			trace = spectro.Transform(x.mode, frame.Ratio)
		}
		data = append(data, trace)

		env.Stream.Publish("xcscan", map[string]any{
			"experiment": x.name,
			"point":      i,
			"delay":      delay,
			"band":       spectro.BandIntegral(trace),
		})
		env.Progress.Step()
	}

	path := filepath.Join(env.DataDir, x.cfg.Basename+".txt")
	if err := dataio.SaveMap(path, points, data); err != nil {
		return err
	}
	env.Record.AddFile(path)
	logger.Info("XC scan finished.", "experiment", x.name, "points", len(points), "file", path)

	if x.cfg.Fit {
		report, err := spectro.EstimateChirp(points, data)
		if err != nil {
			logger.Warn("Chirp estimate failed.", "experiment", x.name, "error", err)
			return nil
		}
		advice := "add prism to probe compressor"
		if report.RedShiftedLater {
			advice = "remove prism from probe compressor"
		}
		logger.Info("Chirp estimate.",
			"dispersion_fs", report.Dispersion,
			"mean_width_fs", report.MeanWidth,
			"width_stdev_fs", report.WidthStdev,
			"advice", advice)
		env.Stream.Publish("xcscan.fit", map[string]any{
			"experiment":    x.name,
			"dispersion_fs": report.Dispersion,
			"mean_width_fs": report.MeanWidth,
			"advice":        advice,
		})
	}
	return nil
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("xc_scan", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
