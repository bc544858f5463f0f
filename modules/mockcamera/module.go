// Package mockcamera provides a synthetic chopped CCD for testing rigs
// without hardware. Pump-on frames carry a Gaussian feature in the middle of
// the detector on top of uniform noise, so FSRS and TA transforms produce a
// recognisable band.
package mockcamera

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/registry"
	"github.com/vk/gofsrs/internal/spectro"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the driver.
type Config struct {
	// Width is the detector width in pixels.
	Width int `hcl:"width,optional"`
	// PhaseFlip swaps which chopper phase counts as pump-on.
	PhaseFlip bool `hcl:"phase_flip,optional"`
	// FrameRateHz paces acquisition; the default matches a 1 kHz amplified
	// laser system.
	FrameRateHz float64 `hcl:"frame_rate_hz,optional"`
}

// Camera is the synthetic device instance.
type Camera struct {
	name      string
	width     int
	phaseFlip bool
	frameRate float64
	rng       *rand.Rand
}

// New creates a camera from a decoded config.
func New(name string, cfg *Config) *Camera {
	width := cfg.Width
	if width <= 0 {
		width = 1024
	}
	rate := cfg.FrameRateHz
	if rate <= 0 {
		rate = 1000
	}
	return &Camera{
		name:      name,
		width:     width,
		phaseFlip: cfg.PhaseFlip,
		frameRate: rate,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name implements device.Device.
func (c *Camera) Name() string { return c.name }

// Close implements device.Device.
func (c *Camera) Close(ctx context.Context) error { return nil }

// Read returns the band integral over a short 80 frame acquisition, which
// lets the camera stand in for a plain input device.
func (c *Camera) Read(ctx context.Context) (float64, error) {
	frame, err := c.ReadFrames(ctx, 80)
	if err != nil {
		return 0, err
	}
	return spectro.BandIntegral(frame.Ratio), nil
}

// ReadFrames implements device.Camera. It synthesises frames number of
// chopped frame pairs and returns their per-pixel averages.
func (c *Camera) ReadFrames(ctx context.Context, frames int) (device.Frame, error) {
	if frames < 1 {
		frames = 1
	}

	// Pace like the real camera would.
	wait := time.Duration(float64(frames) / c.frameRate * float64(time.Second))
	select {
	case <-ctx.Done():
		return device.Frame{}, ctx.Err()
	case <-time.After(wait):
	}

	w := float64(c.width)
	pumpOn := make([]float64, c.width)
	pumpOff := make([]float64, c.width)
	ratio := make([]float64, c.width)

	for px := 0; px < c.width; px++ {
		x := float64(px) - w/2
		feature := math.Exp(-x * x / ((w / 10) * (w / 10)))
		var onSum, offSum float64
		for f := 0; f < frames; f++ {
			onSum += c.rng.Float64() + feature
			offSum += c.rng.Float64()
		}
		on := onSum / float64(frames)
		off := offSum / float64(frames)
		if c.phaseFlip {
			on, off = off, on
		}
		pumpOn[px] = on
		pumpOff[px] = off
		r := on / off
		if math.IsNaN(r) || math.IsInf(r, 0) {
			r = 0
		}
		ratio[px] = r
	}

	return device.Frame{Ratio: ratio, PumpOn: pumpOn, PumpOff: pumpOff}, nil
}

// Register registers the driver with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterDevice("mock_camera", &registry.RegisteredDevice{
		NewConfig: func() any { return new(Config) },
		Create: func(ctx context.Context, name string, cfg any) (device.Device, error) {
			return New(name, cfg.(*Config)), nil
		},
	})
}
