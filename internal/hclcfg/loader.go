// Package hclcfg is the HCL implementation of the config.Loader and
// config.Decoder interfaces. A rig is a single .hcl file or a directory of
// them, holding `device "<type>" "<name>"` and `experiment "<type>" "<name>"`
// blocks whose bodies are decoded lazily against the registered handler's
// config struct.
package hclcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/gofsrs/internal/config"
	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/fsutil"
)

// Loader parses HCL rig files into the format-agnostic model.
type Loader struct{}

// NewLoader creates a new HCL rig loader.
func NewLoader() *Loader {
	return &Loader{}
}

// rigSchema describes the top-level blocks a rig file may contain.
var rigSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "device", LabelNames: []string{"type", "name"}},
		{Type: "experiment", LabelNames: []string{"type", "name"}},
	},
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, config.Decoder, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate rig files: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .hcl rig files found at %s", path)
	}
	logger.Debug("Found rig files to load.", "files", files)

	parser := hclparse.NewParser()
	model := &config.Model{}
	seen := map[string]string{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse rig file %s: %w", file, diags)
		}

		content, diags := hclFile.Body.Content(rigSchema)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("invalid rig file %s: %w", file, diags)
		}

		for _, block := range content.Blocks {
			typeName, name := block.Labels[0], block.Labels[1]
			key := block.Type + "/" + name
			if prev, dup := seen[key]; dup {
				return nil, nil, fmt.Errorf("%s %q in %s already defined in %s", block.Type, name, file, prev)
			}
			seen[key] = file

			switch block.Type {
			case "device":
				model.Devices = append(model.Devices, &config.DeviceBlock{
					Type: typeName, Name: name, Body: block.Body,
				})
			case "experiment":
				model.Experiments = append(model.Experiments, &config.ExperimentBlock{
					Type: typeName, Name: name, Body: block.Body,
				})
			}
		}
	}

	logger.Debug("Rig loaded and translated into unified model.",
		"devices", len(model.Devices), "experiments", len(model.Experiments))
	return model, NewDecoder(), nil
}
