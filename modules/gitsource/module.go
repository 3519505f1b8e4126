// Package gitsource provides the 'gitsource' action handler, which checks
// out a branch of a git repository into the first output artifact of a
// source action.
package gitsource

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/handlers"
)

// Name is the handler name actions refer to with `uses`.
const Name = "gitsource"

const (
	// DefaultBranch is checked out when the action names no branch.
	DefaultBranch = "master"
	// DefaultUsername is sent with a token secret. GitHub accepts any
	// non-empty user name for token authentication.
	DefaultUsername = "x-access-token"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register(Name, handlers.HandlerFunc(Run))
}

// Run clones `url` at `branch` into the first output artifact. A `token`
// secret is sent as HTTP basic auth. `depth` limits the history fetched;
// zero fetches everything.
func Run(ctx context.Context, req *handlers.Request) (*handlers.Result, error) {
	logger := ctxlog.FromContext(ctx)

	url, err := req.RequiredConfig("url")
	if err != nil {
		return nil, err
	}
	branch, err := req.ConfigString("branch", DefaultBranch)
	if err != nil {
		return nil, err
	}
	username, err := req.ConfigString("username", DefaultUsername)
	if err != nil {
		return nil, err
	}
	depth, err := intConfig(req, "depth", 1)
	if err != nil {
		return nil, err
	}
	dest, ok := req.FirstOutput()
	if !ok {
		return nil, fmt.Errorf("action '%s' declares no output to check out into", req.Action.Name)
	}

	opts := &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         depth,
		Auth:          auth(username, req.Secrets["token"]),
	}

	logger.Info("📥 Cloning repository", "url", url, "branch", branch, "depth", depth)
	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s@%s: %w", url, branch, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD of %s: %w", url, err)
	}
	logger.Debug("Gitsource: Checked out.", "commit", head.Hash().String(), "dir", dest)

	return &handlers.Result{Outputs: []string{req.Action.Outputs[0].ID}}, nil
}

func auth(username, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: username, Password: token}
}

func intConfig(req *handlers.Request, key string, def int) (int, error) {
	v, ok := req.Action.Config[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		if t == float64(int(t)) {
			return int(t), nil
		}
	}
	return 0, fmt.Errorf("config '%s' of action '%s' must be a whole number, got %v", key, req.Action.Name, v)
}
