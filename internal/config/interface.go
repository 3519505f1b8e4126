package config

import (
	"context"

	"github.com/specialistvlad/stageplan/internal/pipeline"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load parses the given files and returns every pipeline they declare, in
	// file order and declaration order within a file.
	Load(ctx context.Context, files ...string) ([]*pipeline.Definition, error)
}
