// Package memstore provides an in-memory canonical Backend.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zero-day-ai/dataprovider/store"
)

// Store is an in-memory store.Backend and store.Writer. It is safe for
// concurrent use. Snapshots are copied on the way in and out.
type Store struct {
	mu    sync.RWMutex
	root  uuid.UUID
	nodes map[uuid.UUID]*store.NodeState
}

// New creates a store holding a single root node of type rootType.
func New(rootType store.Name) *Store {
	root := uuid.New()
	s := &Store{
		root:  root,
		nodes: make(map[uuid.UUID]*store.NodeState),
	}
	s.nodes[root] = store.NewNodeState(store.NewCanonicalID(root), rootType, nil, store.StatusExisting)
	return s
}

// Root returns the root UUID.
func (s *Store) Root(ctx context.Context) (uuid.UUID, error) {
	return s.root, nil
}

// Node returns a copy of the node snapshot.
func (s *Store) Node(ctx context.Context, id uuid.UUID) (*store.NodeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: node %s", store.ErrNoSuchItem, id)
	}
	return ns.Clone(), nil
}

// Property returns a copy of the property snapshot.
func (s *Store) Property(ctx context.Context, parent uuid.UUID, name store.Name) (*store.PropertyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("%w: node %s", store.ErrNoSuchItem, parent)
	}
	p, ok := ns.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: property %s of %s", store.ErrNoSuchItem, name, parent)
	}
	return p.Clone(), nil
}

// PutNode stores a copy of state, marking it existing.
func (s *Store) PutNode(ctx context.Context, state *store.NodeState) error {
	if state == nil || state.ID == nil {
		return fmt.Errorf("%w: node without id", store.ErrItemState)
	}

	c := state.Clone()
	c.Status = store.StatusExisting

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[c.ID.UUID()] = c
	return nil
}

// RemoveNode deletes a node and drops it from its parent's listing.
func (s *Store) RemoveNode(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", store.ErrNoSuchItem, id)
	}
	delete(s.nodes, id)

	if ns.ParentID == nil {
		return nil
	}
	if parent, ok := s.nodes[ns.ParentID.UUID()]; ok {
		var kept []store.ChildEntry
		for _, c := range parent.Children() {
			if c.ID.UUID() != id {
				kept = append(kept, c)
			}
		}
		parent.SetChildren(kept)
	}
	return nil
}

// AddNode creates a canonical child of parent and returns its UUID.
func (s *Store) AddNode(ctx context.Context, parent uuid.UUID, name, nodeType store.Name) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.nodes[parent]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: parent %s", store.ErrNoSuchItem, parent)
	}

	id := uuid.New()
	cid := store.NewCanonicalID(id)
	ns := store.NewNodeState(cid, nodeType, p.ID, store.StatusExisting)
	ns.Name = name
	s.nodes[id] = ns
	p.AddChild(name, cid)
	return id, nil
}

// SetProperty sets a canonical property on node id.
func (s *Store) SetProperty(ctx context.Context, id uuid.UUID, name store.Name, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", store.ErrNoSuchItem, id)
	}
	p := store.NewPropertyState(name, ns.ID, store.StatusExisting)
	p.SetValues(values...)
	p.Multiple = len(values) != 1
	ns.SetProperty(p)
	return nil
}

// Len returns the number of stored nodes, root included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
