// Package daqstats implements a quick noise characterisation of an input:
// N reads, then mean, standard deviation and extrema. Handy for judging
// lock-in settings before committing to a long scan.
package daqstats

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/montanaflynn/stats"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/dataio"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the experiment.
type Config struct {
	Input string `hcl:"input"`
	Reads int    `hcl:"reads,optional"`
	// Basename, when set, saves the raw sample trace next to the summary.
	Basename string `hcl:"basename,optional"`
}

// Stats is a configured instance of the experiment.
type Stats struct {
	name string
	cfg  Config
}

// New builds the experiment.
func New(name string, cfg *Config) (*Stats, error) {
	s := &Stats{name: name, cfg: *cfg}
	if s.cfg.Reads <= 0 {
		s.cfg.Reads = 100
	}
	return s, nil
}

// Name implements experiment.Experiment.
func (s *Stats) Name() string { return s.name }

// Run implements experiment.Experiment.
func (s *Stats) Run(ctx context.Context, env *experiment.Env) error {
	logger := ctxlog.FromContext(ctx)

	input, err := env.Devices.Input(s.cfg.Input)
	if err != nil {
		return err
	}

	env.Progress.Start(fmt.Sprintf("daq stats %s", s.name), s.cfg.Reads)
	defer env.Progress.Finish()

	samples := make([]float64, 0, s.cfg.Reads)
	for i := 0; i < s.cfg.Reads; i++ {
		v, err := input.Read(ctx)
		if err != nil {
			return fmt.Errorf("read %d: %w", i, err)
		}
		samples = append(samples, v)
		env.Progress.Step()
	}

	mean, err := stats.Mean(samples)
	if err != nil {
		return err
	}
	stdev, _ := stats.StandardDeviation(samples)
	min, _ := stats.Min(samples)
	max, _ := stats.Max(samples)

	logger.Info("Input statistics.",
		"experiment", s.name,
		"input", s.cfg.Input,
		"reads", len(samples),
		"mean", mean,
		"stdev", stdev,
		"min", min,
		"max", max)

	env.Stream.Publish("daqstats", map[string]any{
		"experiment": s.name,
		"input":      s.cfg.Input,
		"reads":      len(samples),
		"mean":       mean,
		"stdev":      stdev,
		"min":        min,
		"max":        max,
	})

	if s.cfg.Basename != "" {
		path := filepath.Join(env.DataDir, s.cfg.Basename+".txt")
		if err := dataio.SaveColumns(path, samples); err != nil {
			return err
		}
		env.Record.AddFile(path)
	}
	return nil
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("daq_stats", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
