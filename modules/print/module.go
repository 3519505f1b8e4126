// Package print provides the default action handler. It logs the action
// and writes a marker file into each output artifact, which makes it useful
// for dry runs of a pipeline.
package print

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/handlers"
)

// Name is the handler name actions refer to with `uses`.
const Name = handlers.DefaultHandler

// MarkerFile is written into every output directory.
const MarkerFile = ".stageplan-print"

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register(Name, handlers.HandlerFunc(Run))
}

// Run is the handler for the 'print' action.
func Run(ctx context.Context, req *handlers.Request) (*handlers.Result, error) {
	logger := ctxlog.FromContext(ctx)

	message, err := req.ConfigString("message", "")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(req.Action.Config))
	for k := range req.Action.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	logger.Info("🖨️ Printing action",
		"stage", req.Action.Stage,
		"kind", req.Action.Kind.String(),
		"message", message,
		"config_keys", keys,
		"input_count", len(req.Inputs),
	)

	for _, out := range req.Action.Outputs {
		dir, ok := req.Outputs[out.ID]
		if !ok {
			continue
		}
		body := fmt.Sprintf("run=%s\naction=%s\nartifact=%s\n", req.RunID, req.Action.Name, out.ID)
		if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write marker for artifact '%s': %w", out.ID, err)
		}
	}
	return &handlers.Result{}, nil
}
