package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

type sessionKey struct{}

func withSession(ctx context.Context, s *Session) context.Context {
	if fromContext(ctx) == s {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, s)
}

func fromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

type cacheKey struct {
	id        uuid.UUID
	parameter string
}

// Session resolves nodes on behalf of one caller. Every snapshot it hands
// out is cached under the node UUID and the effective parameter, so two
// traversal paths to the same virtual node share one snapshot.
//
// A session may be used from several goroutines; population itself runs
// without holding the session lock.
type Session struct {
	repo *Repository
	pc   *provider.Context

	mu    sync.Mutex
	cache map[cacheKey]*store.NodeState
}

func newSession(repo *Repository, pc *provider.Context) *Session {
	return &Session{
		repo:  repo,
		pc:    pc,
		cache: make(map[cacheKey]*store.NodeState),
	}
}

// Context returns the session's provider context, possibly nil.
func (s *Session) Context() *provider.Context { return s.pc }

// Root returns the root node.
func (s *Session) Root(ctx context.Context) (*store.NodeState, error) {
	return s.Node(ctx, s.repo.RootID())
}

// ItemState resolves a node or property id.
func (s *Session) ItemState(ctx context.Context, id store.ItemID) (store.ItemState, error) {
	switch v := id.(type) {
	case store.PropertyID:
		if v.Parent == nil {
			return nil, fmt.Errorf("%w: property without parent", store.ErrNoSuchItem)
		}
		state, err := s.Node(ctx, v.Parent)
		if err != nil {
			return nil, err
		}
		p, ok := state.Property(v.Name)
		if !ok {
			return nil, fmt.Errorf("%w: property %s", store.ErrNoSuchItem, v)
		}
		return p, nil
	case store.NodeID:
		return s.Node(ctx, v)
	default:
		return nil, fmt.Errorf("%w: unsupported id %v", store.ErrNoSuchItem, id)
	}
}

// Node returns the snapshot of id. Virtual identifiers are parameterized
// with the session parameter, if any. A virtual node that cannot be
// computed is reported as store.ErrNoSuchItem; a snapshot that Refresh
// marked removed is reported as store.ErrInvalidItemState.
func (s *Session) Node(ctx context.Context, id store.NodeID) (*store.NodeState, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: nil id", store.ErrNoSuchItem)
	}
	id = s.substitute(id)
	key := s.key(id)

	s.mu.Lock()
	cached, ok := s.cache[key]
	removed := ok && cached.Status == store.StatusRemoved
	s.mu.Unlock()
	if removed {
		return nil, fmt.Errorf("%w: node %s was removed", store.ErrInvalidItemState, id)
	}
	if ok {
		return cached, nil
	}

	state, err := s.repo.nodeState(withSession(ctx, s), s.pc, id)
	if err != nil {
		return nil, err
	}
	return s.remember(key, state), nil
}

// Children returns the child listing of id.
func (s *Session) Children(ctx context.Context, id store.NodeID) ([]store.ChildEntry, error) {
	state, err := s.Node(ctx, id)
	if err != nil {
		return nil, err
	}
	return state.Children(), nil
}

// Child returns the snapshot of the child of parent named name. name is a
// prefixed name with an optional [index] suffix.
func (s *Session) Child(ctx context.Context, parent store.NodeID, name string) (*store.NodeState, error) {
	p, err := s.repo.ResolvePath(name)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.HierarchyManager().ResolveNode(withSession(ctx, s), parent, p)
	if err != nil {
		return nil, err
	}
	return s.Node(ctx, id)
}

// NodeByPath resolves an absolute path from the root.
func (s *Session) NodeByPath(ctx context.Context, path string) (*store.NodeState, error) {
	p, err := s.repo.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	if !p.Absolute {
		return nil, fmt.Errorf("%w: %q is not absolute", store.ErrMalformedPath, path)
	}
	id, err := s.repo.HierarchyManager().ResolveNode(withSession(ctx, s), s.repo.RootID(), p)
	if err != nil {
		return nil, err
	}
	return s.Node(ctx, id)
}

// Property returns the values of property name of id.
func (s *Session) Property(ctx context.Context, id store.NodeID, name string) ([]string, error) {
	n, err := s.repo.ResolveName(name)
	if err != nil {
		return nil, err
	}
	state, err := s.Node(ctx, id)
	if err != nil {
		return nil, err
	}
	p, ok := state.Property(n)
	if !ok {
		return nil, fmt.Errorf("%w: property %s of %s", store.ErrNoSuchItem, name, id)
	}
	return slices.Clone(p.Values), nil
}

// Invalidate marks the cached snapshots of ids stale. The next Refresh
// recomputes them.
func (s *Session) Invalidate(ids ...store.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if state, ok := s.cache[s.key(s.substitute(id))]; ok && state.Status != store.StatusRemoved {
			state.Status = store.StatusStale
		}
	}
}

// Refresh recomputes the snapshot of id. A virtual node that can no longer
// be computed is marked removed and reported as store.ErrNoSuchItem;
// refreshing it again fails with store.ErrInvalidItemState.
func (s *Session) Refresh(ctx context.Context, id store.NodeID) (*store.NodeState, error) {
	id = s.substitute(id)
	key := s.key(id)

	v, virtual := id.(provider.VirtualID)

	// Invalidate writes Status under the lock, so the snapshot handed to
	// Repopulate is a private copy.
	s.mu.Lock()
	cached, ok := s.cache[key]
	var snapshot *store.NodeState
	if ok && virtual {
		snapshot = cached.Clone()
	}
	s.mu.Unlock()

	if !ok || !virtual {
		s.evict(key)
		return s.Node(ctx, id)
	}

	state, err := v.Repopulate(withSession(ctx, s), nil, snapshot)
	if err != nil {
		return nil, err
	}
	if state == nil {
		s.mu.Lock()
		cached.Status = store.StatusRemoved
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: virtual node %s", store.ErrNoSuchItem, id)
	}

	s.mu.Lock()
	s.cache[key] = state
	s.mu.Unlock()
	return state, nil
}

// Logout drops every cached snapshot.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// Cached returns the number of cached snapshots.
func (s *Session) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// substitute parameterizes virtual identifiers when the session carries a
// parameter.
func (s *Session) substitute(id store.NodeID) store.NodeID {
	if !s.pc.HasParameter() {
		return id
	}
	if _, ok := id.(*provider.ParameterizedID); ok {
		return id
	}
	if _, ok := id.(provider.VirtualID); !ok {
		return id
	}
	return provider.Wrap(id, s.pc.Parameter())
}

func (s *Session) key(id store.NodeID) cacheKey {
	if p, ok := id.(*provider.ParameterizedID); ok {
		return cacheKey{id: p.UUID(), parameter: p.Parameter()}
	}
	return cacheKey{id: id.UUID(), parameter: s.pc.Parameter()}
}

// remember caches state unless another goroutine got there first, and returns
// the cached snapshot.
func (s *Session) remember(key cacheKey, state *store.NodeState) *store.NodeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.cache[key]; ok {
		return existing
	}
	s.cache[key] = state
	return state
}

func (s *Session) evict(key cacheKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
}
