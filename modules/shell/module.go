// Package shell provides the 'shell' action handler, which runs build
// commands in the workspace of an action.
//
// Commands run one after another with `sh -c` in a private working copy of
// the first input artifact; the input itself is never modified. Without
// inputs they run in the first output directory, or in a scratch directory.
// The environment carries the run id, the action name, every artifact
// directory as STAGEPLAN_INPUT_<ID> or STAGEPLAN_OUTPUT_<ID>, and every
// resolved secret under its upper-cased parameter name.
//
// When `base_directory` or `artifact_files` is set, matching files below the
// base directory are copied into the first output artifact once all commands
// have succeeded.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/handlers"
)

// Name is the handler name actions refer to with `uses`.
const Name = "shell"

const (
	// outputTail bounds the command output quoted in an error.
	outputTail = 2048
	// waitDelay bounds how long a cancelled command may keep its output
	// pipes open through child processes.
	waitDelay = time.Second
)

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Shell overrides the interpreter. Defaults to "sh".
	Shell string
}

// Register registers the handler with the registry.
func (m *Module) Register(h *handlers.Handlers) {
	sh := m.Shell
	if sh == "" {
		sh = "sh"
	}
	h.Register(Name, &runner{shell: sh})
}

type runner struct {
	shell string
}

type settings struct {
	commands      []string
	baseDirectory string
	artifactFiles []string
	env           map[string]string
}

func parseSettings(req *handlers.Request) (*settings, error) {
	s := &settings{}
	var err error
	if s.commands, err = req.ConfigStrings("commands"); err != nil {
		return nil, err
	}
	if len(s.commands) == 0 {
		return nil, fmt.Errorf("config 'commands' of action '%s' is required", req.Action.Name)
	}
	if s.baseDirectory, err = req.ConfigString("base_directory", ""); err != nil {
		return nil, err
	}
	if s.artifactFiles, err = req.ConfigStrings("artifact_files"); err != nil {
		return nil, err
	}
	if s.env, err = req.ConfigStringMap("env"); err != nil {
		return nil, err
	}
	return s, nil
}

// Run implements handlers.Handler.
func (r *runner) Run(ctx context.Context, req *handlers.Request) (*handlers.Result, error) {
	logger := ctxlog.FromContext(ctx)

	s, err := parseSettings(req)
	if err != nil {
		return nil, err
	}

	dir, cleanup, err := workdir(req)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	env := environment(req, s.env)
	for i, command := range s.commands {
		logger.Info("🐚 Running command", "index", i, "command", command, "dir", dir)

		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, r.shell, "-c", command)
		cmd.Dir = dir
		cmd.Env = env
		cmd.Stdout = &out
		cmd.Stderr = &out
		cmd.WaitDelay = waitDelay

		if err := cmd.Run(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("command %d interrupted: %w", i, ctxErr)
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return nil, fmt.Errorf("command %d (%q) exited with code %d: %s", i, command, exitErr.ExitCode(), tail(out.String()))
			}
			return nil, fmt.Errorf("command %d (%q) failed to start: %w", i, command, err)
		}
		logger.Debug("Shell: Command finished.", "index", i, "output", tail(out.String()))
	}

	if s.baseDirectory == "" && len(s.artifactFiles) == 0 {
		return &handlers.Result{}, nil
	}
	if _, ok := req.FirstInput(); !ok {
		return nil, fmt.Errorf("action '%s' collects artifact files but declares no input", req.Action.Name)
	}
	outDir, ok := req.FirstOutput()
	if !ok {
		return nil, fmt.Errorf("action '%s' collects artifact files but declares no output", req.Action.Name)
	}
	base := filepath.Join(dir, filepath.FromSlash(s.baseDirectory))
	copied, err := collect(base, s.artifactFiles, outDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("Shell: Artifact files collected.", "base", base, "file_count", copied)
	return &handlers.Result{Outputs: []string{req.Action.Outputs[0].ID}}, nil
}

// workdir returns the directory commands run in and a function removing it
// when it is temporary.
func workdir(req *handlers.Request) (string, func(), error) {
	in, hasInput := req.FirstInput()
	if !hasInput {
		if out, ok := req.FirstOutput(); ok {
			return out, func() {}, nil
		}
	}
	tmp, err := os.MkdirTemp("", "stageplan-shell-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmp) }
	if hasInput {
		if _, err := copyTree(in, in, tmp); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to prepare working copy: %w", err)
		}
	}
	return tmp, cleanup, nil
}

func environment(req *handlers.Request, extra map[string]string) []string {
	env := os.Environ()
	env = append(env,
		"STAGEPLAN_RUN_ID="+req.RunID,
		"STAGEPLAN_ACTION="+req.Action.Name,
		"STAGEPLAN_STAGE="+req.Action.Stage,
	)
	env = appendSorted(env, "STAGEPLAN_INPUT_", req.Inputs)
	env = appendSorted(env, "STAGEPLAN_OUTPUT_", req.Outputs)
	env = appendSorted(env, "", req.Secrets)
	env = appendSorted(env, "", extra)
	return env
}

func appendSorted(env []string, prefix string, values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, prefix+envName(k)+"="+values[k])
	}
	return env
}

// envName upper-cases name and replaces anything outside [A-Z0-9_] with '_'.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTail {
		return s
	}
	return "..." + s[len(s)-outputTail:]
}
