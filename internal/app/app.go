package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gofsrs/internal/config"
	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	decoder  config.Decoder
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Startup errors are programmer or rig-file errors, so it panics; main
// recovers and turns the panic into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Create and populate the registry with Go handlers.
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	a := &App{outW: outW, logger: logger, registry: reg}
	if appConfig.RigPath == "" {
		// History-only invocation, no rig to load.
		return a
	}

	// Load the rig into the format-agnostic model.
	model, decoder, err := loader.Load(ctx, appConfig.RigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load rig: %w", err))
	}
	logger.Debug("Rig loaded and translated into unified model.")

	// Every block type in the rig must have a compiled handler.
	if err := reg.Validate(ctx, model); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	a.model = model
	a.decoder = decoder
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded rig model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
