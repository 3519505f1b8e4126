// Package topologystore defines the interface for storing and retrieving the
// static structure of a stage graph.
//
// # Why Topology Store Exists
//
// The topology store isolates the immutable graph structure (actions and the
// artifact edges between them) from the mutable run state (status, outputs,
// errors) managed by nodestore. Graph queries made by the resolver and the
// planner never contend with the frequent state writes made during a run.
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. Created once per graph build.
//  2. Populated by the stage graph builder (actions first, then edges).
//  3. Read-only afterwards. The resolver walks DependenciesOf to compute
//     upstream closures and detect cycles.
package topologystore

import (
	"context"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
)

// Store is the interface for managing the static topology of a stage graph.
//
// An edge from A to B means B consumes an artifact that A produces, so A must
// succeed before B may start.
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// AddNode registers a new node. Adding the same node twice (by ID) is
	// idempotent and does not return an error.
	AddNode(ctx context.Context, n *node.Node) error

	// AddDependency records that the node 'to' depends on the node 'from'.
	// Both nodes must already exist.
	AddDependency(ctx context.Context, from, to nodeid.Address) error

	// GetNode retrieves a single node by its address.
	GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// DependenciesOf returns the addresses the given node directly depends on.
	// Order is unspecified. It returns an error if the node does not exist.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)

	// DependentsOf returns the addresses that directly depend on the given node.
	// Order is unspecified. It returns an error if the node does not exist.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)
}
