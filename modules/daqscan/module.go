// Package daqscan implements a single-channel scan: an input read at every
// position of an axis. It is the workhorse for lock-in kinetics and motor
// calibration runs.
package daqscan

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
	Input    string     `hcl:"input"`
	Axis     string     `hcl:"axis"`
	Basename string     `hcl:"basename"`
	Sets     int        `hcl:"sets,optional"`
	Position scan.Range `hcl:"position,block"`
}

// DAQScan is a configured instance of the experiment.
type DAQScan struct {
	name string
	cfg  Config
}

// New validates the config and builds the experiment.
func New(name string, cfg *Config) (*DAQScan, error) {
	if err := cfg.Position.Validate(); err != nil {
		return nil, fmt.Errorf("position range: %w", err)
	}
	d := &DAQScan{name: name, cfg: *cfg}
	if d.cfg.Sets <= 0 {
		d.cfg.Sets = 1
	}
	return d, nil
}

// Name implements experiment.Experiment.
func (d *DAQScan) Name() string { return d.name }

// Run implements experiment.Experiment.
func (d *DAQScan) Run(ctx context.Context, env *experiment.Env) (err error) {
	logger := ctxlog.FromContext(ctx)

	input, err := env.Devices.Input(d.cfg.Input)
	if err != nil {
		return err
	}
	axis, err := env.Devices.Axis(d.cfg.Axis)
	if err != nil {
		return err
	}

	points, err := d.cfg.Position.Generate()
	if err != nil {
		return err
	}

	env.Progress.Start(fmt.Sprintf("daq scan %s", d.name), d.cfg.Sets*len(points))
	defer env.Progress.Finish()

	defer func() {
		cleanupCtx := ctxlog.WithLogger(context.Background(), logger)
		if moveErr := axis.MoveTo(cleanupCtx, 0); moveErr != nil && err == nil {
			err = moveErr
		}
	}()

	means := make(map[float64]*spectro.Accumulator)

	for set := 0; set < d.cfg.Sets; set++ {
		if set > 0 {
			if points, err = d.cfg.Position.Generate(); err != nil {
				return err
			}
		}
		for _, pos := range points {
			if err := axis.MoveTo(ctx, pos); err != nil {
				return fmt.Errorf("position %g: %w", pos, err)
			}
			if err := device.Settle(ctx, axis); err != nil {
				return err
			}

			v, err := input.Read(ctx)
			if err != nil {
				return fmt.Errorf("position %g: %w", pos, err)
			}

			acc, ok := means[pos]
			if !ok {
				acc = &spectro.Accumulator{}
				means[pos] = acc
			}
			if err := acc.Add([]float64{v}); err != nil {
				return err
			}

			env.Stream.Publish("daqscan", map[string]any{
				"experiment": d.name,
				"set":        set,
				"position":   pos,
				"value":      v,
			})
			env.Progress.Step()
		}
	}

	// Save in ascending position order regardless of scan order.
	positions := make([]float64, 0, len(means))
	for pos := range means {
		positions = append(positions, pos)
	}
	sort.Float64s(positions)
	rows := make([][]float64, 0, len(positions))
	for _, pos := range positions {
		rows = append(rows, means[pos].Mean())
	}

	path := filepath.Join(env.DataDir, d.cfg.Basename+".txt")
	if err := dataio.SaveMap(path, positions, rows); err != nil {
		return err
	}
	env.Record.AddFile(path)

	logger.Info("DAQ scan finished.",
		"experiment", d.name, "points", len(positions), "sets", d.cfg.Sets, "file", path)
	return nil
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("daq_scan", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
