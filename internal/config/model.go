package config

import "github.com/hashicorp/hcl/v2"

// Model is the unified representation of a loaded rig: the devices that make
// up the instrument and the experiments that can be run on it.
type Model struct {
	Devices     []*DeviceBlock
	Experiments []*ExperimentBlock
}

// DeviceBlock is the representation of a `device "<type>" "<name>"` block.
// The body is kept undecoded; the driver's registered config struct decides
// its schema.
type DeviceBlock struct {
	Type string
	Name string
	Body hcl.Body
}

// ExperimentBlock is the representation of an `experiment "<type>" "<name>"`
// block.
type ExperimentBlock struct {
	Type string
	Name string
	Body hcl.Body
}

// Experiment returns the named experiment block, or nil.
func (m *Model) Experiment(name string) *ExperimentBlock {
	for _, e := range m.Experiments {
		if e.Name == name {
			return e
		}
	}
	return nil
}
