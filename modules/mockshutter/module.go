// Package mockshutter provides a software actinic shutter following the
// engine convention 0 = closed, 1 = open. The slope option inverts the
// electrical sense the way the hardware drivers do.
package mockshutter

import (
	"context"
	"sync"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the driver.
type Config struct {
	// OpenOnLow inverts the drive signal: a zero level opens the shutter.
	OpenOnLow bool `hcl:"open_on_low,optional"`
}

// Shutter is the synthetic output instance.
type Shutter struct {
	name      string
	openOnLow bool

	mu   sync.Mutex
	open bool
}

// New creates a shutter from a decoded config.
func New(name string, cfg *Config) *Shutter {
	return &Shutter{name: name, openOnLow: cfg.OpenOnLow}
}

// Name implements device.Device.
func (s *Shutter) Name() string { return s.name }

// Close implements device.Device. The shutter is left closed.
func (s *Shutter) Close(ctx context.Context) error {
	return s.Write(ctx, 0)
}

// Write implements device.Output.
func (s *Shutter) Write(ctx context.Context, value float64) error {
	open := value != 0
	level := open
	if s.openOnLow {
		level = !open
	}

	s.mu.Lock()
	changed := s.open != open
	s.open = open
	s.mu.Unlock()

	if changed {
		ctxlog.FromContext(ctx).Debug("Shutter state changed.",
			"shutter", s.name, "open", open, "drive_high", level)
	}
	return nil
}

// IsOpen reports the logical shutter state.
func (s *Shutter) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Register registers the driver with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterDevice("mock_shutter", &registry.RegisteredDevice{
		NewConfig: func() any { return new(Config) },
		Create: func(ctx context.Context, name string, cfg any) (device.Device, error) {
			return New(name, cfg.(*Config)), nil
		},
	})
}
