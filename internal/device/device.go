package device

import (
	"context"
	"time"
)

// Device is the minimal contract every driver instance fulfils. Drivers are
// created by their registered handler when the rig is loaded and closed in
// reverse order on shutdown.
type Device interface {
	// Name returns the rig-unique instance name (the block label, not the
	// driver type identifier).
	Name() string

	// Close releases the underlying hardware. It must be safe to call after
	// a failed or cancelled run.
	Close(ctx context.Context) error
}

// Input reads a single scalar value, like a lock-in amplifier output or a
// DAQ channel.
type Input interface {
	Device
	Read(ctx context.Context) (float64, error)
}

// Output writes a single scalar value to the hardware. Shutters follow the
// convention 0 = closed, 1 = open; slope inversion is the driver's business.
type Output interface {
	Device
	Write(ctx context.Context, value float64) error
}

// Axis is a movable delay stage or translation stage. Positions are in the
// stage's native unit (femtoseconds for delay stages).
type Axis interface {
	Device
	Position(ctx context.Context) (float64, error)
	MoveTo(ctx context.Context, pos float64) error
	Moving(ctx context.Context) (bool, error)
}

// Camera acquires multichannel spectra. A camera is also an Input: Read
// typically returns the band integral over a short acquisition.
type Camera interface {
	Input
	ReadFrames(ctx context.Context, frames int) (Frame, error)
}

// Frame holds one averaged acquisition from a chopped pump-probe camera.
// All three slices have one entry per pixel. Ratio is PumpOn/PumpOff with
// non-finite values scrubbed to zero.
type Frame struct {
	Ratio   []float64
	PumpOn  []float64
	PumpOff []float64
}

// Pixels returns the detector width of the frame.
func (f Frame) Pixels() int { return len(f.Ratio) }

// settlePoll is the interval at which Settle re-checks a moving axis.
const settlePoll = 10 * time.Millisecond

// Settle blocks until the axis reports that it has stopped moving, or until
// ctx is cancelled.
func Settle(ctx context.Context, a Axis) error {
	t := time.NewTicker(settlePoll)
	defer t.Stop()
	for {
		moving, err := a.Moving(ctx)
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
