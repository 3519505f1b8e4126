package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a provider has no value for a reference.
	ErrNotFound = errors.New("secret not found")
	// ErrUnknownScheme is returned for a reference without a registered scheme.
	ErrUnknownScheme = errors.New("unknown secret scheme")
)

// Resolver resolves one secret reference to its value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ref string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// Router dispatches "scheme:rest" references to the resolver registered for
// the scheme, passing only the rest.
type Router struct {
	providers map[string]Resolver
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{providers: make(map[string]Resolver)}
}

// Handle registers r for scheme, replacing any earlier registration.
func (r *Router) Handle(scheme string, resolver Resolver) *Router {
	r.providers[scheme] = resolver
	return r
}

// Schemes returns the registered schemes in sorted order.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.providers))
	for s := range r.providers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve implements Resolver.
func (r *Router) Resolve(ctx context.Context, ref string) (string, error) {
	scheme, rest, ok := strings.Cut(ref, ":")
	if !ok || rest == "" {
		return "", fmt.Errorf("secret reference %q: expected <scheme>:<name>", ref)
	}
	provider, ok := r.providers[scheme]
	if !ok {
		return "", fmt.Errorf("secret reference %q: %w '%s'", ref, ErrUnknownScheme, scheme)
	}
	value, err := provider.Resolve(ctx, rest)
	if err != nil {
		return "", fmt.Errorf("resolve secret %q: %w", ref, err)
	}
	return value, nil
}

// Env resolves names against the process environment.
type Env struct {
	lookup func(string) (string, bool)
}

// NewEnv returns an environment resolver backed by os.LookupEnv.
func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

// Resolve implements Resolver.
func (e *Env) Resolve(_ context.Context, name string) (string, error) {
	v, ok := e.lookup(name)
	if !ok {
		return "", fmt.Errorf("environment variable '%s': %w", name, ErrNotFound)
	}
	return v, nil
}

// Static resolves names from a fixed map.
type Static map[string]string

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("static secret '%s': %w", name, ErrNotFound)
	}
	return v, nil
}

// ResolveAll resolves every reference of refs, keyed by parameter name.
// It stops at the first failure.
func ResolveAll(ctx context.Context, r Resolver, refs map[string]string) (map[string]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(refs))
	for _, name := range names {
		v, err := r.Resolve(ctx, refs[name])
		if err != nil {
			return nil, fmt.Errorf("secret parameter '%s': %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
