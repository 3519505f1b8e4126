package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/stageplan/internal/planner"
)

// DefaultHandler is used for actions that do not name a handler.
const DefaultHandler = "print"

// Request carries everything a handler needs to perform one action.
type Request struct {
	RunID  string
	Action planner.PlannedAction
	// Inputs and Outputs map artifact ids to workspace directories.
	Inputs  map[string]string
	Outputs map[string]string
	// Secrets holds resolved secret values keyed by parameter name.
	Secrets map[string]string
}

// Result is returned by a successful handler.
type Result struct {
	// Outputs lists the artifact ids the handler produced. A nil list means
	// every directory in Request.Outputs was populated.
	Outputs []string
}

// Handler performs one kind of action.
type Handler interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Result, error)

// Run implements Handler.
func (f HandlerFunc) Run(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// Module is the interface that all action modules implement to be registered.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all the registered handlers.
type Handlers struct {
	all map[string]Handler
}

// New creates an empty handler registry.
func New() *Handlers {
	return &Handlers{all: make(map[string]Handler)}
}

// Register adds a handler under name. It panics if the name is taken.
func (h *Handlers) Register(name string, handler Handler) {
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("action handler with name '%s' already registered", name))
	}
	slog.Debug("Registering action handler.", "name", name)
	h.all[name] = handler
}

// Lookup returns the handler for name. An empty name selects DefaultHandler.
func (h *Handlers) Lookup(name string) (Handler, bool) {
	if name == "" {
		name = DefaultHandler
	}
	handler, ok := h.all[name]
	return handler, ok
}

// Names returns the registered names in sorted order.
func (h *Handlers) Names() []string {
	names := make([]string, 0, len(h.all))
	for name := range h.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every action of plan names a registered handler.
// Every unknown name is reported, not only the first.
func (h *Handlers) Validate(plan *planner.ExecutionPlan) error {
	var errs []string
	for _, w := range plan.Waves {
		for _, a := range w.Actions {
			if _, ok := h.Lookup(a.Uses); !ok {
				uses := a.Uses
				if uses == "" {
					uses = DefaultHandler
				}
				errs = append(errs, fmt.Sprintf("action '%s' uses unknown handler '%s'", a.Name, uses))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("handler validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
