// Package nodestore defines the interface for the mutable run state of
// actions: status, confirmed outputs and failure errors.
//
// # Why Node Store Exists
//
// The node store isolates run state from the immutable graph held by
// topologystore. The wave gate writes a status for every action it releases,
// completes or skips, and the executor records confirmed outputs and errors.
//
// # Lifecycle and Usage
//
// A store is scoped to one run:
//  1. Created by the session factory (in memory, or sqlite-backed for a
//     durable run history).
//  2. Mutated by the scheduler and executor while waves run.
//  3. Queried afterwards to build the run summary.
//
// # State Transitions
//
//	Pending -> Running -> Succeeded | Failed | Cancelled
//	Pending -> Skipped
package nodestore

import (
	"context"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
)

// Store is the interface for managing the run state of actions.
//
// Implementations MUST be safe for concurrent use: actions of one wave run in
// parallel and update their state simultaneously.
type Store interface {
	// SetStatus updates the status of an action.
	SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error

	// GetStatus returns the status of an action, StatusPending if none was set.
	GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error)

	// SetOutput records the artifact ids an action confirmed on success.
	SetOutput(ctx context.Context, id nodeid.Address, outputs []string) error

	// GetOutput returns the confirmed artifact ids, nil if none were recorded.
	GetOutput(ctx context.Context, id nodeid.Address) ([]string, error)

	// SetError records why an action failed or was cancelled.
	SetError(ctx context.Context, id nodeid.Address, nodeErr error) error

	// GetError returns the recorded error, nil if none was recorded.
	GetError(ctx context.Context, id nodeid.Address) (error, error)
}
