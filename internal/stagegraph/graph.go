package stagegraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/topologystore"
)

// Graph is the read-only view over a validated definition.
type Graph struct {
	name      string
	stages    []string
	nodes     []*node.Node
	byName    map[string]*node.Node
	topology  topologystore.Store
	edgeCount int
}

// Name returns the pipeline name.
func (g *Graph) Name() string {
	return g.name
}

// Stages returns the stage names in declaration order.
func (g *Graph) Stages() []string {
	return append([]string(nil), g.stages...)
}

// Actions returns every action node in declaration order.
func (g *Graph) Actions() []*node.Node {
	return append([]*node.Node(nil), g.nodes...)
}

// Action looks up an action node by name.
func (g *Graph) Action(name string) (*node.Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// EdgeCount returns the number of producer to consumer edges, one per
// consumed artifact.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// DependenciesOf returns the actions the named action directly depends on,
// in declaration order.
func (g *Graph) DependenciesOf(ctx context.Context, action string) ([]*node.Node, error) {
	n, ok := g.byName[action]
	if !ok {
		return nil, fmt.Errorf("action '%s' not found in graph '%s'", action, g.name)
	}
	addrs, err := g.topology.DependenciesOf(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return g.lookupSorted(ctx, addrs)
}

// DependentsOf returns the actions that directly depend on the named action,
// in declaration order.
func (g *Graph) DependentsOf(ctx context.Context, action string) ([]*node.Node, error) {
	n, ok := g.byName[action]
	if !ok {
		return nil, fmt.Errorf("action '%s' not found in graph '%s'", action, g.name)
	}
	addrs, err := g.topology.DependentsOf(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return g.lookupSorted(ctx, addrs)
}

func (g *Graph) lookupSorted(ctx context.Context, addrs []nodeid.Address) ([]*node.Node, error) {
	out := make([]*node.Node, 0, len(addrs))
	for _, addr := range addrs {
		n, ok := g.topology.GetNode(ctx, addr)
		if !ok {
			return nil, fmt.Errorf("internal inconsistency: node '%s' missing from topology", addr)
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
