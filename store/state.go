package store

import (
	"slices"
)

// Status is the lifecycle status of an item state.
type Status int

const (
	// StatusNew marks a snapshot created in memory and never stored.
	StatusNew Status = iota
	// StatusExisting marks a snapshot read from the backing store.
	StatusExisting
	// StatusStale marks a snapshot invalidated by a change to its source.
	StatusStale
	// StatusRemoved marks a snapshot whose source no longer exists.
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusExisting:
		return "existing"
	case StatusStale:
		return "stale"
	case StatusRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ValueType is the declared type of property values. Values are carried as
// strings regardless of type.
type ValueType string

const (
	TypeString    ValueType = "string"
	TypeLong      ValueType = "long"
	TypeBoolean   ValueType = "boolean"
	TypeDate      ValueType = "date"
	TypeName      ValueType = "name"
	TypeReference ValueType = "reference"
	TypeUndefined ValueType = "undefined"
)

// ItemState is either a *NodeState or a *PropertyState.
type ItemState interface {
	IsNode() bool
	ItemID() ItemID
}

// ChildEntry names a child node in its parent's listing.
type ChildEntry struct {
	Name  Name
	ID    NodeID
	Index int
}

// NodeState is the in-memory snapshot of a node's type, properties and
// children. Snapshots handed out by a session are owned by that session.
type NodeState struct {
	ID         NodeID
	ParentID   NodeID
	Name       Name
	NodeType   Name
	Mixins     []Name
	Definition *NodeDefinition
	Status     Status

	properties []*PropertyState
	children   []ChildEntry
}

// NodeDefinition is the definition a node was created under.
type NodeDefinition struct {
	DeclaringType Name
	Name          Name
	DefaultType   Name
	Residual      bool
}

// PropertyDefinition is the definition a property was created under.
type PropertyDefinition struct {
	DeclaringType Name
	Name          Name
	Type          ValueType
	Multiple      bool
	Residual      bool
}

// NewNodeState creates an empty snapshot.
func NewNodeState(id NodeID, nodeType Name, parent NodeID, status Status) *NodeState {
	return &NodeState{
		ID:       id,
		ParentID: parent,
		NodeType: nodeType,
		Status:   status,
	}
}

// IsNode always returns true.
func (n *NodeState) IsNode() bool { return true }

// ItemID returns the node id.
func (n *NodeState) ItemID() ItemID { return n.ID }

// Properties returns the properties in insertion order.
func (n *NodeState) Properties() []*PropertyState {
	return slices.Clone(n.properties)
}

// PropertyNames returns the property names in insertion order.
func (n *NodeState) PropertyNames() []Name {
	names := make([]Name, len(n.properties))
	for i, p := range n.properties {
		names[i] = p.Name
	}
	return names
}

// Property returns the named property.
func (n *NodeState) Property(name Name) (*PropertyState, bool) {
	for _, p := range n.properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// HasProperty reports whether the snapshot carries name.
func (n *NodeState) HasProperty(name Name) bool {
	_, ok := n.Property(name)
	return ok
}

// SetProperty adds p, replacing an existing property of the same name in
// place.
func (n *NodeState) SetProperty(p *PropertyState) {
	for i, existing := range n.properties {
		if existing.Name == p.Name {
			n.properties[i] = p
			return
		}
	}
	n.properties = append(n.properties, p)
}

// RemoveProperty drops name and reports whether it was present.
func (n *NodeState) RemoveProperty(name Name) bool {
	for i, p := range n.properties {
		if p.Name == name {
			n.properties = slices.Delete(n.properties, i, i+1)
			return true
		}
	}
	return false
}

// Children returns the child entries in order.
func (n *NodeState) Children() []ChildEntry {
	return slices.Clone(n.children)
}

// AddChild appends a child entry and returns it with its same-name index
// filled in.
func (n *NodeState) AddChild(name Name, id NodeID) ChildEntry {
	index := 1
	for _, c := range n.children {
		if c.Name == name {
			index++
		}
	}
	entry := ChildEntry{Name: name, ID: id, Index: index}
	n.children = append(n.children, entry)
	return entry
}

// SetChildren replaces the child entries, recomputing same-name indexes.
func (n *NodeState) SetChildren(entries []ChildEntry) {
	n.children = nil
	for _, e := range entries {
		n.AddChild(e.Name, e.ID)
	}
}

// Child returns the entry for name at the 1-based index (0 means 1).
func (n *NodeState) Child(name Name, index int) (ChildEntry, bool) {
	if index == 0 {
		index = 1
	}
	for _, c := range n.children {
		if c.Name == name && c.Index == index {
			return c, true
		}
	}
	return ChildEntry{}, false
}

// HasChildren reports whether the node lists any child.
func (n *NodeState) HasChildren() bool {
	return len(n.children) > 0
}

// Clone returns a deep copy of the snapshot. Property states are copied so
// the clone can be filled independently.
func (n *NodeState) Clone() *NodeState {
	c := *n
	c.Mixins = slices.Clone(n.Mixins)
	if n.Definition != nil {
		def := *n.Definition
		c.Definition = &def
	}
	c.properties = make([]*PropertyState, len(n.properties))
	for i, p := range n.properties {
		c.properties[i] = p.Clone()
	}
	c.children = slices.Clone(n.children)
	return &c
}

// Reset clears properties and children, keeping identity, type and
// definition. It is used before a snapshot is filled again.
func (n *NodeState) Reset() {
	n.properties = nil
	n.children = nil
}

// PropertyState is the in-memory snapshot of a property.
type PropertyState struct {
	Name       Name
	ParentID   NodeID
	Type       ValueType
	Values     []string
	Multiple   bool
	Definition *PropertyDefinition
	Status     Status
}

// NewPropertyState creates an empty property snapshot.
func NewPropertyState(name Name, parent NodeID, status Status) *PropertyState {
	return &PropertyState{
		Name:     name,
		ParentID: parent,
		Type:     TypeString,
		Status:   status,
	}
}

// IsNode always returns false.
func (p *PropertyState) IsNode() bool { return false }

// ItemID returns the property id.
func (p *PropertyState) ItemID() ItemID {
	return PropertyID{Parent: p.ParentID, Name: p.Name}
}

// SetValues replaces the values of the property.
func (p *PropertyState) SetValues(values ...string) {
	p.Values = slices.Clone(values)
}

// Value returns the first value, or "" when the property has none.
func (p *PropertyState) Value() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// Clone returns a deep copy of the property.
func (p *PropertyState) Clone() *PropertyState {
	c := *p
	c.Values = slices.Clone(p.Values)
	if p.Definition != nil {
		def := *p.Definition
		c.Definition = &def
	}
	return &c
}
