package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/uuidgen"
)

// VirtualID is implemented by identifiers of nodes computed by a provider.
type VirtualID interface {
	store.NodeID

	// Provider returns the provider that computes the node.
	Provider() Provider

	// Populate computes the node snapshot. It returns nil without error when
	// the node cannot be computed from the current store state.
	Populate(ctx context.Context, pc *Context) (*store.NodeState, error)

	// Repopulate refills an existing snapshot of the node.
	Repopulate(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error)
}

// NodeID identifies a virtual node by its provider, parent, context and
// name. It is immutable; the UUID is generated once at construction.
type NodeID struct {
	id       uuid.UUID
	provider Provider
	parent   store.NodeID
	context  *Context
	name     store.Name

	// self is the outermost identifier embedding this one. It is what gets
	// handed to the provider on population.
	self VirtualID
}

// NewNodeID creates the identifier of the virtual node name below parent.
// A nil pc inherits the context of parent.
func NewNodeID(p Provider, parent store.NodeID, pc *Context, name store.Name) (*NodeID, error) {
	return newNodeID(p, parent, pc, name, nil)
}

func newNodeID(p Provider, parent store.NodeID, pc *Context, name store.Name, canonical store.NodeID) (*NodeID, error) {
	if p == nil {
		return nil, errors.New("provider: nil provider for virtual node id")
	}
	sc := p.Store()
	if sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, p.Name())
	}

	if pc == nil {
		pc = ContextOf(parent)
	}

	seed := uuidgen.Seed{Provider: p.Name(), Name: name.String()}
	if parent != nil {
		seed.Parent = parent.UUID().String()
	}

	n := &NodeID{
		id:       sc.GenerateUUID(pc, canonical, seed),
		provider: p,
		parent:   parent,
		context:  pc,
		name:     name,
	}
	n.self = n
	return n, nil
}

// UUID returns the generated UUID.
func (n *NodeID) UUID() uuid.UUID { return n.id }

// IsNode always returns true.
func (n *NodeID) IsNode() bool { return true }

func (n *NodeID) String() string {
	return n.provider.Name() + ":" + n.id.String()
}

// Provider returns the owning provider.
func (n *NodeID) Provider() Provider { return n.provider }

// Parent returns the parent identifier.
func (n *NodeID) Parent() store.NodeID { return n.parent }

// Context returns the stored context, possibly nil.
func (n *NodeID) Context() *Context { return n.context }

// Name returns the node name.
func (n *NodeID) Name() store.Name { return n.name }

// Populate computes the node snapshot with pc, or the stored context when pc
// is nil. Store failures are logged and reported as an absent node.
func (n *NodeID) Populate(ctx context.Context, pc *Context) (*store.NodeState, error) {
	if pc == nil {
		pc = n.context
	}
	state, err := n.provider.Populate(ctx, pc, n.self, n.parent)
	return n.soften("populate", state, err)
}

// Repopulate refills state, which must be a live snapshot of this node.
func (n *NodeID) Repopulate(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error) {
	if state == nil || state.ID == nil || state.ID.UUID() != n.id {
		return nil, fmt.Errorf("%w: snapshot does not belong to %s", store.ErrInvalidItemState, n)
	}
	if state.Status == store.StatusRemoved {
		return nil, fmt.Errorf("%w: snapshot of %s was removed", store.ErrInvalidItemState, n)
	}
	if pc == nil {
		pc = n.context
	}

	fresh := state.Clone()
	fresh.Reset()
	fresh.Status = store.StatusNew
	result, err := n.provider.PopulateState(ctx, pc, fresh)
	return n.soften("repopulate", result, err)
}

// soften turns store failures into an absent node. Invalid-state errors and
// anything that is not a store error are returned.
func (n *NodeID) soften(op string, state *store.NodeState, err error) (*store.NodeState, error) {
	if err == nil {
		return state, nil
	}
	if errors.Is(err, store.ErrInvalidItemState) || !store.IsStoreError(err) {
		return nil, err
	}

	logger := n.provider.Store().Logger()
	if logger != nil {
		logger.Warn("virtual node unavailable",
			"op", op,
			"provider", n.provider.Name(),
			"id", n.id.String(),
			"name", n.name.String(),
			"error", err)
	}
	return nil, nil
}

// MirrorID identifies a virtual node that mirrors a canonical upstream node.
// The upstream takes part in UUID generation, so mirrors of different
// upstream nodes never collide.
type MirrorID struct {
	*NodeID
	upstream store.NodeID
}

// NewMirrorID creates the identifier of the mirror of upstream named name
// below parent.
func NewMirrorID(p Provider, parent store.NodeID, pc *Context, name store.Name, upstream store.NodeID) (*MirrorID, error) {
	base, err := newNodeID(p, parent, pc, name, upstream)
	if err != nil {
		return nil, err
	}
	m := &MirrorID{NodeID: base, upstream: upstream}
	base.self = m
	return m, nil
}

// Upstream returns the mirrored node.
func (m *MirrorID) Upstream() store.NodeID { return m.upstream }
