package device

import (
	"context"
	"fmt"

	"github.com/vk/gofsrs/internal/ctxlog"
)

// Set holds the live device instances of a loaded rig in creation order.
// Experiments resolve their hardware references through the typed lookups;
// a reference to a device of the wrong capability is a config error surfaced
// before the run starts.
type Set struct {
	order  []Device
	byName map[string]Device
}

// NewSet creates an empty device set.
func NewSet() *Set {
	return &Set{byName: make(map[string]Device)}
}

// Add appends a device to the set. Instance names must be rig-unique.
func (s *Set) Add(d Device) error {
	if _, exists := s.byName[d.Name()]; exists {
		return fmt.Errorf("duplicate device name %q", d.Name())
	}
	s.byName[d.Name()] = d
	s.order = append(s.order, d)
	return nil
}

// Len returns the number of devices in the set.
func (s *Set) Len() int { return len(s.order) }

// All returns the devices in creation order.
func (s *Set) All() []Device {
	out := make([]Device, len(s.order))
	copy(out, s.order)
	return out
}

// Names returns the instance names in creation order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.order))
	for _, d := range s.order {
		out = append(out, d.Name())
	}
	return out
}

// Input resolves a named device as an Input.
func (s *Set) Input(name string) (Input, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("no device named %q in rig", name)
	}
	in, ok := d.(Input)
	if !ok {
		return nil, fmt.Errorf("device %q is not an input", name)
	}
	return in, nil
}

// Output resolves a named device as an Output.
func (s *Set) Output(name string) (Output, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("no device named %q in rig", name)
	}
	out, ok := d.(Output)
	if !ok {
		return nil, fmt.Errorf("device %q is not an output", name)
	}
	return out, nil
}

// Axis resolves a named device as an Axis.
func (s *Set) Axis(name string) (Axis, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("no device named %q in rig", name)
	}
	ax, ok := d.(Axis)
	if !ok {
		return nil, fmt.Errorf("device %q is not an axis", name)
	}
	return ax, nil
}

// Camera resolves a named device as a Camera.
func (s *Set) Camera(name string) (Camera, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("no device named %q in rig", name)
	}
	cam, ok := d.(Camera)
	if !ok {
		return nil, fmt.Errorf("device %q is not a camera", name)
	}
	return cam, nil
}

// CloseAll closes every device in reverse creation order, logging failures
// instead of aborting so that one stuck driver does not leave the rest of the
// rig hanging.
func (s *Set) CloseAll(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for i := len(s.order) - 1; i >= 0; i-- {
		d := s.order[i]
		if err := d.Close(ctx); err != nil {
			logger.Warn("Device close failed.", "device", d.Name(), "error", err)
		}
	}
}
