package registry

import (
	"fmt"
	"log/slog"
)

// RegisterDevice registers a device driver under its type identifier.
func (r *Registry) RegisterDevice(typeName string, handler *RegisteredDevice) {
	if _, exists := r.DeviceRegistry[typeName]; exists {
		panic(fmt.Sprintf("device driver with type '%s' already registered", typeName))
	}
	slog.Debug("Registering device driver.", "type", typeName)
	r.DeviceRegistry[typeName] = handler
}

// RegisterExperiment registers an experiment under its type identifier.
func (r *Registry) RegisterExperiment(typeName string, handler *RegisteredExperiment) {
	if _, exists := r.ExperimentRegistry[typeName]; exists {
		panic(fmt.Sprintf("experiment with type '%s' already registered", typeName))
	}
	slog.Debug("Registering experiment.", "type", typeName)
	r.ExperimentRegistry[typeName] = handler
}
