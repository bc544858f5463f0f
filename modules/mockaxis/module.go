// Package mockaxis provides a software delay stage. Motion is either
// instantaneous or rate-limited, so scan loops can exercise their
// settle-polling against it.
package mockaxis

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the driver.
type Config struct {
	// Home is the initial position.
	Home float64 `hcl:"home,optional"`
	// Speed is the travel rate in position units per second; zero means
	// instantaneous moves.
	Speed float64 `hcl:"speed,optional"`
}

// Axis is the synthetic stage instance.
type Axis struct {
	name  string
	speed float64

	mu       sync.Mutex
	from     float64
	target   float64
	moveDone time.Time
}

// New creates an axis from a decoded config.
func New(name string, cfg *Config) *Axis {
	return &Axis{name: name, speed: cfg.Speed, from: cfg.Home, target: cfg.Home}
}

// Name implements device.Device.
func (a *Axis) Name() string { return a.name }

// Close implements device.Device.
func (a *Axis) Close(ctx context.Context) error { return nil }

// Position implements device.Axis. While moving it reports the
// interpolated in-flight position.
func (a *Axis) Position(ctx context.Context) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	remaining := time.Until(a.moveDone)
	if remaining <= 0 || a.speed <= 0 {
		return a.target, nil
	}
	travelled := math.Abs(a.target-a.from) - remaining.Seconds()*a.speed
	if travelled < 0 {
		travelled = 0
	}
	if a.target < a.from {
		return a.from - travelled, nil
	}
	return a.from + travelled, nil
}

// MoveTo implements device.Axis.
func (a *Axis) MoveTo(ctx context.Context, pos float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	current := a.target
	a.from = current
	a.target = pos
	if a.speed > 0 {
		travel := time.Duration(math.Abs(pos-current) / a.speed * float64(time.Second))
		a.moveDone = time.Now().Add(travel)
	} else {
		a.moveDone = time.Now()
	}
	return nil
}

// Moving implements device.Axis.
func (a *Axis) Moving(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Now().Before(a.moveDone), nil
}

// Register registers the driver with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterDevice("mock_axis", &registry.RegisteredDevice{
		NewConfig: func() any { return new(Config) },
		Create: func(ctx context.Context, name string, cfg any) (device.Device, error) {
			return New(name, cfg.(*Config)), nil
		},
	})
}
