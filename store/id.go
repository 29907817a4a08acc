package store

import (
	"github.com/google/uuid"
)

// ItemID identifies a node or a property.
type ItemID interface {
	// IsNode reports whether the id names a node.
	IsNode() bool
	String() string
}

// NodeID identifies a node within a session. Storage-layer equality and
// hashing use the UUID only.
type NodeID interface {
	ItemID
	UUID() uuid.UUID
}

// CanonicalID identifies a node physically present in the backing store.
type CanonicalID struct {
	id uuid.UUID
}

// NewCanonicalID wraps a store-assigned UUID.
func NewCanonicalID(id uuid.UUID) CanonicalID {
	return CanonicalID{id: id}
}

// ParseCanonicalID parses the textual form of a canonical node id.
func ParseCanonicalID(s string) (CanonicalID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CanonicalID{}, err
	}
	return CanonicalID{id: id}, nil
}

// UUID returns the node UUID.
func (c CanonicalID) UUID() uuid.UUID { return c.id }

// IsNode always returns true.
func (c CanonicalID) IsNode() bool { return true }

func (c CanonicalID) String() string { return c.id.String() }

// PropertyID identifies a property by its parent node and name.
type PropertyID struct {
	Parent NodeID
	Name   Name
}

// IsNode always returns false.
func (p PropertyID) IsNode() bool { return false }

func (p PropertyID) String() string {
	if p.Parent == nil {
		return "/" + p.Name.String()
	}
	return p.Parent.String() + "/" + p.Name.String()
}

// SameNode reports whether a and b name the same node at the storage layer.
func SameNode(a, b NodeID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UUID() == b.UUID()
}

// Upstreamer is implemented by identifiers of virtual nodes that mirror a
// canonical node.
type Upstreamer interface {
	Upstream() NodeID
}

// CanonicalOf returns the canonical counterpart of id: the upstream node for
// mirroring identifiers, id itself otherwise.
func CanonicalOf(id NodeID) NodeID {
	for id != nil {
		u, ok := id.(Upstreamer)
		if !ok {
			return id
		}
		next := u.Upstream()
		if next == nil {
			return id
		}
		id = next
	}
	return nil
}
