// Package daqmonitor implements a long-running watchdog on an input, meant
// to babysit laser power overnight. Readings are judged against a rolling
// window; a departure of more than tolerance standard deviations from the
// window mean is logged as a fault and appended to a fault file.
package daqmonitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the experiment.
type Config struct {
	Input string `hcl:"input"`
	// IntervalMillis spaces the reads; defaults to one second.
	IntervalMillis int `hcl:"interval_ms,optional"`
	// Window is the number of past readings the baseline is computed over.
	Window int `hcl:"window,optional"`
	// Tolerance is the fault threshold in window standard deviations.
	Tolerance float64 `hcl:"tolerance,optional"`
	// Reads bounds the run; zero monitors until stopped.
	Reads int `hcl:"reads,optional"`
	// Basename names the fault log; defaults to the experiment name.
	Basename string `hcl:"basename,optional"`
}

// Monitor is a configured instance of the experiment.
type Monitor struct {
	name string
	cfg  Config
}

// New builds the experiment.
func New(name string, cfg *Config) (*Monitor, error) {
	m := &Monitor{name: name, cfg: *cfg}
	if m.cfg.IntervalMillis <= 0 {
		m.cfg.IntervalMillis = 1000
	}
	if m.cfg.Window <= 0 {
		m.cfg.Window = 60
	}
	if m.cfg.Tolerance <= 0 {
		m.cfg.Tolerance = 5
	}
	if m.cfg.Basename == "" {
		m.cfg.Basename = name
	}
	return m, nil
}

// Name implements experiment.Experiment.
func (m *Monitor) Name() string { return m.name }

// Run implements experiment.Experiment.
func (m *Monitor) Run(ctx context.Context, env *experiment.Env) error {
	logger := ctxlog.FromContext(ctx)

	input, err := env.Devices.Input(m.cfg.Input)
	if err != nil {
		return err
	}

	total := m.cfg.Reads
	if total <= 0 {
		total = -1
	}
	env.Progress.Start(fmt.Sprintf("monitor %s", m.name), total)
	defer env.Progress.Finish()

	faultPath := filepath.Join(env.DataDir, m.cfg.Basename+"_faults.txt")
	interval := time.Duration(m.cfg.IntervalMillis) * time.Millisecond
	window := make([]float64, 0, m.cfg.Window)
	faults := 0

	logger.Info("Monitor started.",
		"experiment", m.name, "input", m.cfg.Input,
		"interval", interval, "window", m.cfg.Window, "tolerance", m.cfg.Tolerance)

	for i := 0; m.cfg.Reads <= 0 || i < m.cfg.Reads; i++ {
		v, err := input.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return fmt.Errorf("read %d: %w", i, err)
		}

		// The baseline needs a filled window before faults mean anything.
		if len(window) >= m.cfg.Window {
			mean, err := stats.Mean(window)
			if err != nil {
				return err
			}
			stdev, _ := stats.StandardDeviation(window)
			if dev := v - mean; stdev > 0 && (dev > m.cfg.Tolerance*stdev || dev < -m.cfg.Tolerance*stdev) {
				faults++
				logger.Warn("Monitor fault.",
					"experiment", m.name, "value", v, "mean", mean, "stdev", stdev)
				if err := appendFault(faultPath, v, mean, stdev); err != nil {
					return err
				}
				if faults == 1 {
					env.Record.AddFile(faultPath)
				}
			}
			window = window[1:]
		}
		window = append(window, v)

		env.Stream.Publish("daqmonitor", map[string]any{
			"experiment": m.name,
			"value":      v,
			"faults":     faults,
		})
		env.Progress.Step()

		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Info("Monitor stopped.", "experiment", m.name, "faults", faults)
	return nil
}

// appendFault writes one timestamped fault line; the file survives across
// runs on purpose.
func appendFault(path string, value, mean, stdev float64) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open fault log: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s\t%g\t%g\t%g\n",
		time.Now().Format(time.RFC3339), value, mean, stdev)
	return err
}

// Register registers the experiment with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExperiment("daq_monitor", &registry.RegisteredExperiment{
		NewConfig: func() any { return new(Config) },
		New: func(name string, cfg any) (experiment.Experiment, error) {
			return New(name, cfg.(*Config))
		},
	})
}
