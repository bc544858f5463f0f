package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/gofsrs/internal/config"
	"github.com/vk/gofsrs/internal/ctxlog"
)

// Validate performs a strict parity check between the loaded rig model and
// the compiled handlers: every block type in the rig must resolve to a
// registered handler. Unknown types are reported together with the list of
// known identifiers so that a typo in a rig file is a one-look fix.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, dev := range model.Devices {
		if _, ok := r.DeviceRegistry[dev.Type]; !ok {
			errs = append(errs, fmt.Sprintf("device %q: unknown driver type '%s' (known: %s)",
				dev.Name, dev.Type, strings.Join(r.deviceTypes(), ", ")))
		}
	}
	for _, exp := range model.Experiments {
		if _, ok := r.ExperimentRegistry[exp.Type]; !ok {
			errs = append(errs, fmt.Sprintf("experiment %q: unknown experiment type '%s' (known: %s)",
				exp.Name, exp.Type, strings.Join(r.experimentTypes(), ", ")))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.",
		"devices", len(model.Devices), "experiments", len(model.Experiments))
	return nil
}

func (r *Registry) deviceTypes() []string {
	out := make([]string, 0, len(r.DeviceRegistry))
	for name := range r.DeviceRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) experimentTypes() []string {
	out := make([]string, 0, len(r.ExperimentRegistry))
	for name := range r.ExperimentRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
