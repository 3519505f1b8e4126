// Package node defines the vertex type of the stage graph and the execution
// status an action moves through at run time.
package node

import (
	"fmt"

	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/pipeline"
)

// Node is a single vertex in the stage graph. It wraps one declared action
// together with its position in the definition.
//
// Nodes are created by the graph builder and never modified afterwards.
type Node struct {
	// ID is the unique, structured identifier of the action.
	ID nodeid.Address
	// Action is a private copy of the declared action.
	Action pipeline.Action
	// StageIndex is the zero-based position of the declaring stage.
	StageIndex int
	// Order is the zero-based declaration position of the action across the
	// whole pipeline. It is the tie-break for every deterministic ordering.
	Order int
}

// New creates a node for an action declared in the given stage.
func New(stage string, stageIndex, order int, action pipeline.Action) *Node {
	return &Node{
		ID:         nodeid.New(stage, action.Name),
		Action:     action.Clone(),
		StageIndex: stageIndex,
		Order:      order,
	}
}

// Name returns the action name.
func (n *Node) Name() string {
	return n.Action.Name
}

// Stage returns the name of the declaring stage.
func (n *Node) Stage() string {
	return n.ID.Stage
}

// Status represents the execution state of an action within one run.
type Status int32

const (
	// StatusPending indicates the action has not started.
	StatusPending Status = iota
	// StatusRunning indicates the action is currently being executed.
	StatusRunning
	// StatusSucceeded indicates the action reported success.
	StatusSucceeded
	// StatusFailed indicates the action reported failure.
	StatusFailed
	// StatusCancelled indicates the action was cancelled while pending or running.
	StatusCancelled
	// StatusSkipped indicates the action never started because an earlier
	// wave did not complete successfully.
	StatusSkipped
)

var statusNames = [...]string{
	StatusPending:   "pending",
	StatusRunning:   "running",
	StatusSucceeded: "succeeded",
	StatusFailed:    "failed",
	StatusCancelled: "cancelled",
	StatusSkipped:   "skipped",
}

// String returns the lowercase status name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int32(s))
	}
	return statusNames[s]
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}

// ParseStatus parses a status name as produced by String.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return StatusPending, fmt.Errorf("unknown status %q", s)
}
