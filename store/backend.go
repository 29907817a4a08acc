package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Backend is the canonical, persisted side of the content store. Node states
// returned by a Backend use CanonicalID for the node, its parent and its
// children.
//
// Implementations must return an error wrapping ErrNoSuchItem when a node or
// property does not exist, and must hand out copies: callers are free to
// modify returned snapshots.
type Backend interface {
	// Root returns the UUID of the root node.
	Root(ctx context.Context) (uuid.UUID, error)

	// Node returns the snapshot of a canonical node.
	Node(ctx context.Context, id uuid.UUID) (*NodeState, error)

	// Property returns the snapshot of a canonical property.
	Property(ctx context.Context, parent uuid.UUID, name Name) (*PropertyState, error)
}

// Writer is implemented by backends that accept canonical writes. The
// provider framework only writes through it when seeding or migrating data.
type Writer interface {
	// PutNode stores a node with its properties and child listing.
	PutNode(ctx context.Context, state *NodeState) error

	// RemoveNode deletes a node. Children are not removed.
	RemoveNode(ctx context.Context, id uuid.UUID) error
}

// ItemStateReader resolves any item id, canonical or virtual, to its state.
type ItemStateReader interface {
	ItemState(ctx context.Context, id ItemID) (ItemState, error)
}

// HierarchyManager answers structural questions about the node tree.
type HierarchyManager interface {
	// ParentID returns the parent of id, nil for the root.
	ParentID(ctx context.Context, id NodeID) (NodeID, error)

	// Name returns the name of id within its parent.
	Name(ctx context.Context, id NodeID) (Name, error)

	// ChildEntries returns the child listing of id.
	ChildEntries(ctx context.Context, id NodeID) ([]ChildEntry, error)

	// ResolveNode walks p starting at from (ignored for absolute paths).
	ResolveNode(ctx context.Context, from NodeID, p Path) (NodeID, error)
}

type hierarchyManager struct {
	root   NodeID
	reader ItemStateReader
}

// NewHierarchyManager returns a HierarchyManager reading states through
// reader, so virtual nodes are walked the same way as canonical ones.
func NewHierarchyManager(root NodeID, reader ItemStateReader) HierarchyManager {
	return &hierarchyManager{root: root, reader: reader}
}

func (h *hierarchyManager) node(ctx context.Context, id NodeID) (*NodeState, error) {
	state, err := h.reader.ItemState(ctx, id)
	if err != nil {
		return nil, err
	}
	ns, ok := state.(*NodeState)
	if !ok || ns == nil {
		return nil, fmt.Errorf("%w: %s is not a node", ErrNoSuchItem, id)
	}
	return ns, nil
}

func (h *hierarchyManager) ParentID(ctx context.Context, id NodeID) (NodeID, error) {
	ns, err := h.node(ctx, id)
	if err != nil {
		return nil, err
	}
	return ns.ParentID, nil
}

func (h *hierarchyManager) Name(ctx context.Context, id NodeID) (Name, error) {
	ns, err := h.node(ctx, id)
	if err != nil {
		return Name{}, err
	}
	return ns.Name, nil
}

func (h *hierarchyManager) ChildEntries(ctx context.Context, id NodeID) ([]ChildEntry, error) {
	ns, err := h.node(ctx, id)
	if err != nil {
		return nil, err
	}
	return ns.Children(), nil
}

func (h *hierarchyManager) ResolveNode(ctx context.Context, from NodeID, p Path) (NodeID, error) {
	current := from
	if p.Absolute || current == nil {
		current = h.root
	}

	for _, elem := range p.Elements {
		ns, err := h.node(ctx, current)
		if err != nil {
			return nil, err
		}
		if elem.Parent {
			if ns.ParentID == nil {
				return nil, fmt.Errorf("%w: parent of root", ErrNoSuchItem)
			}
			current = ns.ParentID
			continue
		}
		entry, ok := ns.Child(elem.Name, elem.Index)
		if !ok {
			return nil, fmt.Errorf("%w: child %s of %s", ErrNoSuchItem, elem.Name, current)
		}
		current = entry.ID
	}
	return current, nil
}

// IsNotFound reports whether err signals a missing item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSuchItem)
}
