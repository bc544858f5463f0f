package hclcfg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gofsrs/internal/ctxlog"
)

// Decoder evaluates HCL block bodies against the rig evaluation context and
// populates the handler's config struct.
type Decoder struct {
	evalCtx *hcl.EvalContext
}

// NewDecoder creates a Decoder with the standard rig evaluation context.
func NewDecoder() *Decoder {
	return &Decoder{evalCtx: newEvalContext()}
}

// DecodeBody implements config.Decoder.
func (d *Decoder) DecodeBody(ctx context.Context, body hcl.Body, target any) error {
	logger := ctxlog.FromContext(ctx)
	diags := gohcl.DecodeBody(body, d.evalCtx, target)
	if diags.HasErrors() {
		return diags
	}
	logger.Debug("Decoded block body.", "target", fmt.Sprintf("%T", target))
	return nil
}

// newEvalContext builds the variables available to rig expressions: time
// unit constants in femtoseconds, so delay ranges read naturally
// (`from = -2 * ps`), and the process environment.
func newEvalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"fs":  cty.NumberFloatVal(1),
			"ps":  cty.NumberFloatVal(1e3),
			"ns":  cty.NumberFloatVal(1e6),
			"env": envVal,
		},
	}
}
