// Package experiment defines the contract between the application core and
// the measurement modules. An experiment owns one measurement procedure; the
// engine hands it a context for cancellation and an Env with everything it
// is allowed to touch: the rig's devices, the data directory, progress
// reporting and the live stream.
package experiment

import (
	"context"

	"github.com/vk/gofsrs/internal/device"
)

// Experiment is a runnable measurement procedure. Run blocks until the
// measurement completes, fails, or the context is cancelled. Implementations
// must leave the hardware in a safe state on every exit path: shutters
// closed, axes returned.
type Experiment interface {
	// Name returns the rig-unique instance name of the experiment block.
	Name() string

	// Run executes the measurement.
	Run(ctx context.Context, env *Env) error
}

// Progress receives coarse measurement progress for display to the operator.
type Progress interface {
	// Start announces a measurement with a known number of steps. A total
	// of -1 means indeterminate (continuous acquisition).
	Start(description string, total int)

	// Step reports one completed step.
	Step()

	// Finish closes out the current measurement's progress display.
	Finish()
}

// Publisher fans live measurement data out to attached observers, such as
// the websocket stream of the status server.
type Publisher interface {
	Publish(topic string, payload any)
}

// Env is the environment an experiment runs in.
type Env struct {
	// Devices holds the live device instances of the rig.
	Devices *device.Set

	// DataDir is the directory output files belong under.
	DataDir string

	// Progress reports step-level progress. Never nil.
	Progress Progress

	// Stream publishes live data to observers. Never nil.
	Stream Publisher

	// Record collects the output files the run produced, for the run
	// history index.
	Record *RunRecord
}

// RunRecord accumulates facts about the current run.
type RunRecord struct {
	files []string
}

// AddFile notes an output file produced by the run.
func (r *RunRecord) AddFile(path string) {
	if r == nil {
		return
	}
	r.files = append(r.files, path)
}

// Files returns the output files noted so far.
func (r *RunRecord) Files() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.files))
	copy(out, r.files)
	return out
}

// NopProgress is a Progress that discards everything; used in tests and
// when no terminal is attached.
type NopProgress struct{}

func (NopProgress) Start(string, int) {}
func (NopProgress) Step()             {}
func (NopProgress) Finish()           {}

// NopPublisher is a Publisher that discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) {}
