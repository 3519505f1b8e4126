package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/stageplan/internal/node"
	"github.com/specialistvlad/stageplan/internal/nodeid"
	"github.com/specialistvlad/stageplan/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // Key: nodeid.Address, Value: node.Status
	outputs sync.Map // Key: nodeid.Address, Value: []string
	errors  sync.Map // Key: nodeid.Address, Value: error
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the execution status of a specific action.
func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the execution status of a specific action.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// SetOutput records the confirmed outputs of an action.
func (s *Store) SetOutput(ctx context.Context, id nodeid.Address, outputs []string) error {
	s.outputs.Store(id, append([]string(nil), outputs...))
	return nil
}

// GetOutput retrieves the confirmed outputs of an action.
func (s *Store) GetOutput(ctx context.Context, id nodeid.Address) ([]string, error) {
	outputs, ok := s.outputs.Load(id)
	if !ok {
		return nil, nil
	}
	return append([]string(nil), outputs.([]string)...), nil
}

// SetError records the failure error of an action.
func (s *Store) SetError(ctx context.Context, id nodeid.Address, nodeErr error) error {
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of an action.
func (s *Store) GetError(ctx context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}
