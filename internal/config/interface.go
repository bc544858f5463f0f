package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific rig loader.
type Loader interface {
	// Load reads rig configuration from a file or directory, translates it
	// into the model, and returns a matching Decoder for the block bodies.
	Load(ctx context.Context, path string) (*Model, Decoder, error)
}

// Decoder binds an undecoded block body onto a handler's config struct,
// evaluating expressions and applying the format's conversion rules.
type Decoder interface {
	DecodeBody(ctx context.Context, body hcl.Body, target any) error
}
