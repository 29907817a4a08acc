package nodetype

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/zero-day-ai/dataprovider/store"
)

// Sentinel errors for registry operations.
var (
	// ErrNodeTypeNotRegistered indicates that the requested node type is not in the registry.
	//
	// Example:
	//	def, err := registry.NodeType(name)
	//	if errors.Is(err, nodetype.ErrNodeTypeNotRegistered) {
	//	    log.Errorf("Node type not found in registry: %v", err)
	//	}
	ErrNodeTypeNotRegistered = errors.New("node type not registered")

	// ErrNoApplicableDefinition indicates that no child-node or property
	// definition of the node type (or its supertypes and mixins) applies to
	// the requested name and type. It wraps store.ErrNoDefinition.
	ErrNoApplicableDefinition = fmt.Errorf("no applicable definition: %w", store.ErrNoDefinition)

	// ErrInvalidNodeType indicates a node type definition that cannot be registered.
	ErrInvalidNodeType = errors.New("invalid node type")
)

// Built-in node type names.
var (
	Base          = store.NewName(store.NamespaceNT, "base")
	Unstructured  = store.NewName(store.NamespaceNT, "unstructured")
	Folder        = store.NewName(store.NamespaceNT, "folder")
	Referenceable = store.NewName(store.NamespaceMix, "referenceable")

	// PropUUID is the identifier property of referenceable nodes.
	PropUUID = store.NewName(store.NamespaceJCR, "uuid")
)

// PropertyDef declares a property of a node type. A residual definition
// (Residual true, Name empty) applies to any property name.
type PropertyDef struct {
	Name      store.Name
	Residual  bool
	Type      store.ValueType
	Multiple  bool
	Mandatory bool
	Protected bool
}

// ChildDef declares a child node of a node type. A residual definition
// applies to any child name.
type ChildDef struct {
	Name             store.Name
	Residual         bool
	RequiredTypes    []store.Name
	DefaultType      store.Name
	SameNameSiblings bool
}

// NodeType describes a primary or mixin node type.
type NodeType struct {
	Name       store.Name
	Supertypes []store.Name
	Mixin      bool
	Orderable  bool
	Properties []PropertyDef
	Children   []ChildDef
}

func (t NodeType) clone() NodeType {
	c := t
	c.Supertypes = slices.Clone(t.Supertypes)
	c.Properties = slices.Clone(t.Properties)
	c.Children = make([]ChildDef, len(t.Children))
	for i, ch := range t.Children {
		ch.RequiredTypes = slices.Clone(ch.RequiredTypes)
		c.Children[i] = ch
	}
	return c
}

// Registry holds node type definitions and answers definition lookups.
//
// This implementation is thread-safe and can be used concurrently. Types are
// normally registered once during startup and only read afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[store.Name]NodeType
}

// NewRegistry creates a registry pre-populated with the built-in types:
//   - nt:base: root of every primary type
//   - nt:unstructured: any property, any child; the fallback for computed nodes
//   - nt:folder: any child of any type, no residual properties
//   - mix:referenceable: adds jcr:uuid
func NewRegistry() *Registry {
	r := &Registry{types: make(map[store.Name]NodeType)}

	r.register(NodeType{Name: Base})
	r.register(NodeType{
		Name:       Unstructured,
		Supertypes: []store.Name{Base},
		Orderable:  true,
		Properties: []PropertyDef{
			{Residual: true, Type: store.TypeUndefined, Multiple: true},
			{Residual: true, Type: store.TypeUndefined},
		},
		Children: []ChildDef{
			{Residual: true, RequiredTypes: []store.Name{Base}, DefaultType: Unstructured, SameNameSiblings: true},
		},
	})
	r.register(NodeType{
		Name:       Folder,
		Supertypes: []store.Name{Base},
		Children: []ChildDef{
			{Residual: true, RequiredTypes: []store.Name{Base}, DefaultType: Folder},
		},
	})
	r.register(NodeType{
		Name:  Referenceable,
		Mixin: true,
		Properties: []PropertyDef{
			{Name: PropUUID, Type: store.TypeString, Mandatory: true, Protected: true},
		},
	})
	return r
}

// register is an internal helper used for the built-in types.
func (r *Registry) register(t NodeType) {
	r.types[t.Name] = t
}

// Register adds a node type. All supertypes must already be registered, and
// a primary type without explicit supertypes inherits from nt:base.
func (r *Registry) Register(t NodeType) error {
	if t.Name.IsZero() {
		return fmt.Errorf("%w: empty name", ErrInvalidNodeType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("%w: %s already registered", ErrInvalidNodeType, t.Name)
	}

	t = t.clone()
	if len(t.Supertypes) == 0 && !t.Mixin {
		t.Supertypes = []store.Name{Base}
	}
	for _, st := range t.Supertypes {
		if _, ok := r.types[st]; !ok {
			return fmt.Errorf("%w: supertype %s of %s", ErrNodeTypeNotRegistered, st, t.Name)
		}
	}
	for _, ch := range t.Children {
		for _, req := range ch.RequiredTypes {
			if _, ok := r.types[req]; !ok && req != t.Name {
				return fmt.Errorf("%w: required type %s of %s", ErrNodeTypeNotRegistered, req, t.Name)
			}
		}
	}

	r.types[t.Name] = t
	return nil
}

// NodeType returns a copy of the named type.
func (r *Registry) NodeType(name store.Name) (NodeType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	if !ok {
		return NodeType{}, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, name)
	}
	return t.clone(), nil
}

// IsRegistered checks if a node type exists in the registry.
func (r *Registry) IsRegistered(name store.Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.types[name]
	return ok
}

// AllNodeTypes returns all registered type names sorted by expanded name.
func (r *Registry) AllNodeTypes() []store.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]store.Name, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.Compare(names[i].String(), names[j].String()) < 0
	})
	return names
}

// IsNodeType reports whether name is target or inherits from it.
func (r *Registry) IsNodeType(name, target store.Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.effective(name, nil) {
		if t.Name == target {
			return true
		}
	}
	return false
}

// effective returns the primary type, the mixins and all their supertypes in
// breadth-first order, each once. Unregistered names are skipped.
// The caller must hold r.mu.
func (r *Registry) effective(primary store.Name, mixins []store.Name) []NodeType {
	var out []NodeType
	seen := make(map[store.Name]bool)
	queue := append([]store.Name{primary}, mixins...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		t, ok := r.types[n]
		if !ok {
			continue
		}
		out = append(out, t)
		queue = append(queue, t.Supertypes...)
	}
	return out
}

// PropertyDefinition finds the definition applying to property prop of a
// node with the given primary type and mixins. Named definitions win over
// residual ones; among residual ones a multi-valued definition is preferred
// when multiple is true.
func (r *Registry) PropertyDefinition(nodeType store.Name, mixins []store.Name, prop store.Name, multiple bool) (*store.PropertyDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.types[nodeType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	types := r.effective(nodeType, mixins)
	for _, t := range types {
		for _, pd := range t.Properties {
			if !pd.Residual && pd.Name == prop {
				return propertyDefinition(t.Name, pd), nil
			}
		}
	}

	var fallback *store.PropertyDefinition
	for _, t := range types {
		for _, pd := range t.Properties {
			if !pd.Residual {
				continue
			}
			if pd.Multiple == multiple {
				return propertyDefinition(t.Name, pd), nil
			}
			if fallback == nil {
				fallback = propertyDefinition(t.Name, pd)
			}
		}
	}
	if fallback != nil {
		return fallback, nil
	}

	return nil, fmt.Errorf("%w: property %s on %s", ErrNoApplicableDefinition, prop, nodeType)
}

// ChildDefinition finds the definition applying to a child named childName
// of type childType under a parent of the given primary type and mixins. A
// zero childType selects the definition's default type.
func (r *Registry) ChildDefinition(parentType store.Name, mixins []store.Name, childName, childType store.Name) (*store.NodeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.types[parentType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, parentType)
	}
	if !childType.IsZero() {
		if _, ok := r.types[childType]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, childType)
		}
	}

	types := r.effective(parentType, mixins)
	for _, residual := range []bool{false, true} {
		for _, t := range types {
			for _, cd := range t.Children {
				if cd.Residual != residual || (!residual && cd.Name != childName) {
					continue
				}
				if r.satisfies(childType, cd) {
					return nodeDefinition(t.Name, cd), nil
				}
			}
		}
	}

	return nil, fmt.Errorf("%w: child %s of type %s under %s", ErrNoApplicableDefinition, childName, childType, parentType)
}

// satisfies reports whether childType meets every required type of cd.
// The caller must hold r.mu.
func (r *Registry) satisfies(childType store.Name, cd ChildDef) bool {
	if childType.IsZero() {
		if cd.DefaultType.IsZero() {
			return false
		}
		childType = cd.DefaultType
	}
	for _, req := range cd.RequiredTypes {
		found := false
		for _, t := range r.effective(childType, nil) {
			if t.Name == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func propertyDefinition(declaring store.Name, pd PropertyDef) *store.PropertyDefinition {
	return &store.PropertyDefinition{
		DeclaringType: declaring,
		Name:          pd.Name,
		Type:          pd.Type,
		Multiple:      pd.Multiple,
		Residual:      pd.Residual,
	}
}

func nodeDefinition(declaring store.Name, cd ChildDef) *store.NodeDefinition {
	return &store.NodeDefinition{
		DeclaringType: declaring,
		Name:          cd.Name,
		DefaultType:   cd.DefaultType,
		Residual:      cd.Residual,
	}
}
