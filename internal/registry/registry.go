package registry

import (
	"context"

	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/experiment"
)

// Module is the interface that all core modules must implement to be
// registered. Each driver and experiment package self-registers its handlers
// under a stable type identifier; the identifier, not a source filename,
// is what rig files refer to.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered device and experiment handlers for a single
// application instance.
type Registry struct {
	DeviceRegistry     map[string]*RegisteredDevice
	ExperimentRegistry map[string]*RegisteredExperiment
}

// RegisteredDevice holds the compiled Go parts of a device driver's
// lifecycle: a constructor for its config struct and the create function
// that opens the hardware.
type RegisteredDevice struct {
	NewConfig func() any
	Create    func(ctx context.Context, name string, cfg any) (device.Device, error)
}

// RegisteredExperiment holds the compiled Go parts of an experiment: a
// constructor for its config struct and the factory producing a runnable
// instance.
type RegisteredExperiment struct {
	NewConfig func() any
	New       func(name string, cfg any) (experiment.Experiment, error)
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		DeviceRegistry:     make(map[string]*RegisteredDevice),
		ExperimentRegistry: make(map[string]*RegisteredExperiment),
	}
}

// Device returns the handler registered for a device type identifier.
func (r *Registry) Device(typeName string) (*RegisteredDevice, bool) {
	h, ok := r.DeviceRegistry[typeName]
	return h, ok
}

// Experiment returns the handler registered for an experiment type identifier.
func (r *Registry) Experiment(typeName string) (*RegisteredExperiment, bool) {
	h, ok := r.ExperimentRegistry[typeName]
	return h, ok
}
