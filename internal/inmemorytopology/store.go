package inmemorytopology

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/topologystore"
)

type edgeSet map[nodeid.Address]struct{}

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu         sync.RWMutex
	nodes      map[nodeid.Address]*node.Node
	deps       map[nodeid.Address]edgeSet // Key: node, Value: nodes it depends on
	dependents map[nodeid.Address]edgeSet // Key: node, Value: nodes depending on it
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		nodes:      make(map[nodeid.Address]*node.Node),
		deps:       make(map[nodeid.Address]edgeSet),
		dependents: make(map[nodeid.Address]edgeSet),
	}
}

// AddNode adds a new node to the store.
func (s *Store) AddNode(ctx context.Context, n *node.Node) error {
	if n == nil {
		return fmt.Errorf("cannot add nil node to topology")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		return nil
	}
	s.nodes[n.ID] = n
	return nil
}

// AddDependency creates a dependency link from one node to another.
func (s *Store) AddDependency(ctx context.Context, from, to nodeid.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[from]; !exists {
		return fmt.Errorf("dependency source node '%s' not found in topology", from)
	}
	if _, exists := s.nodes[to]; !exists {
		return fmt.Errorf("dependency target node '%s' not found in topology", to)
	}

	if s.deps[to] == nil {
		s.deps[to] = make(edgeSet)
	}
	s.deps[to][from] = struct{}{}
	if s.dependents[from] == nil {
		s.dependents[from] = make(edgeSet)
	}
	s.dependents[from][to] = struct{}{}
	return nil
}

// GetNode retrieves a single node by its address.
func (s *Store) GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n, ok
}

// DependenciesOf returns the addresses of all nodes that the given node depends on.
func (s *Store) DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.edges(s.deps, id)
}

// DependentsOf returns the addresses of all nodes that depend on the given node.
func (s *Store) DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.edges(s.dependents, id)
}

func (s *Store) edges(index map[nodeid.Address]edgeSet, id nodeid.Address) ([]nodeid.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.nodes[id]; !exists {
		return nil, fmt.Errorf("node '%s' not found in topology", id)
	}

	set := index[id]
	out := make([]nodeid.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	return out, nil
}
