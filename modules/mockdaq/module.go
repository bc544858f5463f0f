// Package mockdaq provides a synthetic single-channel input: uniform noise
// around a configurable offset, an optional per-read drift to give the
// monitor experiment something to trip over, and a configurable read delay
// matching a real DAQ's settling time.
package mockdaq

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the driver.
type Config struct {
	// Amplitude is the peak-to-peak width of the noise band.
	Amplitude float64 `hcl:"amplitude,optional"`
	// Offset is the centre of the noise band.
	Offset float64 `hcl:"offset,optional"`
	// WaitMillis delays each read, emulating integration time.
	WaitMillis int `hcl:"wait_ms,optional"`
	// DriftPerRead shifts the offset a little on every read.
	DriftPerRead float64 `hcl:"drift_per_read,optional"`
}

// DAQ is the synthetic input instance.
type DAQ struct {
	name      string
	amplitude float64
	wait      time.Duration
	drift     float64
	rng       *rand.Rand

	mu     sync.Mutex
	offset float64
}

// New creates a DAQ from a decoded config.
func New(name string, cfg *Config) *DAQ {
	return &DAQ{
		name:      name,
		amplitude: cfg.Amplitude,
		offset:    cfg.Offset,
		wait:      time.Duration(cfg.WaitMillis) * time.Millisecond,
		drift:     cfg.DriftPerRead,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name implements device.Device.
func (d *DAQ) Name() string { return d.name }

// Close implements device.Device.
func (d *DAQ) Close(ctx context.Context) error { return nil }

// Read implements device.Input.
func (d *DAQ) Read(ctx context.Context) (float64, error) {
	if d.wait > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d.wait):
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.offset += d.drift
	return d.offset + (d.rng.Float64()-0.5)*d.amplitude, nil
}

// Register registers the driver with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterDevice("mock_daq", &registry.RegisteredDevice{
		NewConfig: func() any { return new(Config) },
		Create: func(ctx context.Context, name string, cfg any) (device.Device, error) {
			return New(name, cfg.(*Config)), nil
		},
	})
}
