package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/vk/gofsrs/internal/config"
	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/dataio"
	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/status"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HistoryLimit > 0 {
		return a.printHistory(ctx, appConfig)
	}

	if err := os.MkdirAll(appConfig.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// The run context is what POST /stop cancels.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := status.NewHub()
	var server *status.Server
	if appConfig.ListenPort > 0 {
		server = status.NewServer(a.logger, hub, cancel)
		server.Start(appConfig.ListenPort)
		defer server.Shutdown(context.Background())
	}

	devices, err := a.createDevices(runCtx)
	if err != nil {
		return err
	}
	defer func() {
		// Close hardware even after a stop request.
		closeCtx := ctxlog.WithLogger(context.Background(), a.logger)
		devices.CloseAll(closeCtx)
	}()

	if server != nil {
		server.SetSnapshot(status.Snapshot{Devices: devices.Names(), State: "idle"})
	}

	history, err := dataio.OpenHistory(filepath.Join(appConfig.DataDir, "history.db"))
	if err != nil {
		return err
	}
	defer history.Close()

	experiments, err := a.selectExperiments(appConfig.Experiment)
	if err != nil {
		return err
	}
	a.logger.Info("Rig ready.", "devices", devices.Len(), "experiments", len(experiments))

	for _, block := range experiments {
		err := a.runExperiment(runCtx, block, devices, hub, server, history, appConfig.DataDir)
		if errors.Is(err, context.Canceled) {
			color.New(color.FgYellow).Fprintf(a.outW, "• %s stopped\n", block.Name)
			break
		}
		if err != nil {
			color.New(color.FgRed).Fprintf(a.outW, "✗ %s failed: %v\n", block.Name, err)
			return fmt.Errorf("experiment %q failed: %w", block.Name, err)
		}
		color.New(color.FgGreen).Fprintf(a.outW, "✓ %s done\n", block.Name)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// createDevices opens every device block of the rig, in rig order.
func (a *App) createDevices(ctx context.Context) (*device.Set, error) {
	set := device.NewSet()
	for _, block := range a.model.Devices {
		handler, ok := a.registry.Device(block.Type)
		if !ok {
			return nil, fmt.Errorf("device %q: unknown driver type %q", block.Name, block.Type)
		}

		cfg := handler.NewConfig()
		if err := a.decoder.DecodeBody(ctx, block.Body, cfg); err != nil {
			return nil, fmt.Errorf("device %q: %w", block.Name, err)
		}

		dev, err := handler.Create(ctx, block.Name, cfg)
		if err != nil {
			set.CloseAll(ctx)
			return nil, fmt.Errorf("device %q: %w", block.Name, err)
		}
		if err := set.Add(dev); err != nil {
			dev.Close(ctx)
			set.CloseAll(ctx)
			return nil, err
		}
		a.logger.Info("Device ready.", "device", block.Name, "type", block.Type)
	}
	return set, nil
}

// selectExperiments resolves the experiment blocks to run.
func (a *App) selectExperiments(name string) ([]*config.ExperimentBlock, error) {
	if name == "" {
		return a.model.Experiments, nil
	}
	block := a.model.Experiment(name)
	if block == nil {
		return nil, fmt.Errorf("experiment %q not found in rig", name)
	}
	return []*config.ExperimentBlock{block}, nil
}

// runExperiment decodes, builds and runs a single experiment block, and
// records the run in the history index.
func (a *App) runExperiment(ctx context.Context, block *config.ExperimentBlock, devices *device.Set, hub *status.Hub, server *status.Server, history *dataio.History, dataDir string) error {
	handler, ok := a.registry.Experiment(block.Type)
	if !ok {
		return fmt.Errorf("unknown experiment type %q", block.Type)
	}

	cfg := handler.NewConfig()
	if err := a.decoder.DecodeBody(ctx, block.Body, cfg); err != nil {
		return err
	}
	exp, err := handler.New(block.Name, cfg)
	if err != nil {
		return err
	}

	runID, err := history.Begin(ctx, block.Name)
	if err != nil {
		return err
	}
	a.logger.Info("Experiment starting.", "experiment", block.Name, "type", block.Type, "run_id", runID)

	if server != nil {
		server.UpdateSnapshot(func(s *status.Snapshot) {
			s.Experiment = block.Name
			s.RunID = runID
			s.Step = 0
			s.Total = 0
			s.State = "running"
		})
	}

	record := &experiment.RunRecord{}
	runErr := exp.Run(ctx, &experiment.Env{
		Devices:  devices,
		DataDir:  dataDir,
		Progress: newRunProgress(a.outW, server),
		Stream:   hub,
		Record:   record,
	})

	runStatus := dataio.StatusDone
	switch {
	case errors.Is(runErr, context.Canceled):
		runStatus = dataio.StatusCancelled
	case runErr != nil:
		runStatus = dataio.StatusFailed
	}

	// Record the outcome even when the run context is gone.
	finishCtx := ctxlog.WithLogger(context.Background(), a.logger)
	if err := history.Finish(finishCtx, runID, runStatus, record.Files()); err != nil {
		a.logger.Warn("Failed to record run outcome.", "run_id", runID, "error", err)
	}

	if server != nil {
		server.UpdateSnapshot(func(s *status.Snapshot) { s.State = runStatus })
	}
	a.logger.Info("Experiment finished.",
		"experiment", block.Name, "run_id", runID, "status", runStatus, "files", len(record.Files()))
	return runErr
}

// printHistory lists the most recent runs from the history index.
func (a *App) printHistory(ctx context.Context, appConfig *Config) error {
	history, err := dataio.OpenHistory(filepath.Join(appConfig.DataDir, "history.db"))
	if err != nil {
		return err
	}
	defer history.Close()

	runs, err := history.Recent(ctx, appConfig.HistoryLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.outW, "no recorded runs")
		return nil
	}

	statusColor := map[string]*color.Color{
		dataio.StatusDone:      color.New(color.FgGreen),
		dataio.StatusFailed:    color.New(color.FgRed),
		dataio.StatusCancelled: color.New(color.FgYellow),
		dataio.StatusRunning:   color.New(color.FgCyan),
	}
	for _, run := range runs {
		c, ok := statusColor[run.Status]
		if !ok {
			c = color.New()
		}
		fmt.Fprintf(a.outW, "%s  %-20s  ", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Experiment)
		c.Fprintf(a.outW, "%-9s", run.Status)
		fmt.Fprintf(a.outW, "  %d file(s)\n", len(run.Files))
	}
	return nil
}
