package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
)

// Provider computes virtual nodes of one virtual type and, optionally,
// augments canonical nodes of one external type with virtual children.
//
// Concrete providers embed *Base and implement the optional Setup and Filler
// hooks; Base supplies the rest of the interface.
type Provider interface {
	// Name returns the unique provider name.
	Name() string

	// VirtualType returns the node type of the nodes the provider creates.
	VirtualType() store.Name

	// Store returns the bound store context, nil before Initialize.
	Store() StoreContext

	// Initialize binds the provider to sc. It may be called once.
	Initialize(sc StoreContext) error

	// Populate creates and fills the snapshot of the virtual node id below
	// parent.
	Populate(ctx context.Context, pc *Context, id store.NodeID, parent store.NodeID) (*store.NodeState, error)

	// PopulateState fills an existing snapshot, canonical or virtual.
	PopulateState(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error)
}

// Setup is implemented by providers that resolve names, register node types
// or look up collaborators once the store is bound.
type Setup interface {
	Setup() error
}

// Filler is implemented by providers that add properties and children to a
// snapshot. Fill may return state itself or a replacement.
type Filler interface {
	Fill(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error)
}

// Typer is implemented by providers whose nodes take their type from
// somewhere other than the registered virtual type, typically a mirrored
// canonical node.
type Typer interface {
	NodeType(ctx context.Context, id store.NodeID) (nodeType store.Name, mixins []store.Name, err error)
}

// PropertyReader reads canonical property values.
type PropertyReader interface {
	Property(ctx context.Context, id store.NodeID, name string) ([]string, error)
}

// Base implements the bookkeeping shared by all providers: store binding,
// registration, definition lookups with fallback, canonical property access
// and memoized name resolution.
//
// Example:
//
//	type countProvider struct {
//		*provider.Base
//	}
//
//	func newCountProvider() *countProvider {
//		p := &countProvider{}
//		p.Base = provider.NewBase(p, "count")
//		return p
//	}
//
//	func (p *countProvider) Setup() error {
//		return p.Register("", "nav:count")
//	}
type Base struct {
	self Provider
	name string

	initMu      sync.Mutex
	initialized atomic.Bool
	sc          StoreContext
	logger      *slog.Logger
	tel         *telemetry

	virtualType store.Name
	names       sync.Map // string -> store.Name
	paths       sync.Map // string -> store.Path
}

// NewBase creates the base of provider self. self is used to dispatch to the
// concrete provider's hooks and is what gets registered with the store.
func NewBase(self Provider, name string) *Base {
	return &Base{
		self:   self,
		name:   name,
		logger: slog.Default(),
		tel:    newTelemetry(nil, nil),
	}
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// VirtualType returns the registered virtual type, zero before Register.
func (b *Base) VirtualType() store.Name { return b.virtualType }

// Store returns the bound store context. It is available from Setup on.
func (b *Base) Store() StoreContext {
	return b.sc
}

// Logger returns the provider logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// IsInitialized reports whether Initialize completed.
func (b *Base) IsInitialized() bool { return b.initialized.Load() }

// Initialize binds the store context and runs the Setup hook.
func (b *Base) Initialize(sc StoreContext) error {
	if sc == nil {
		return fmt.Errorf("provider %s: nil store context", b.name)
	}

	b.initMu.Lock()
	defer b.initMu.Unlock()

	if b.initialized.Load() {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, b.name)
	}

	b.sc = sc
	if l := sc.Logger(); l != nil {
		b.logger = l.With("provider", b.name)
	}
	b.tel = newTelemetry(sc.Tracer(), sc.Meter())

	if s, ok := b.self.(Setup); ok {
		if err := s.Setup(); err != nil {
			b.sc = nil
			return fmt.Errorf("initialize provider %s: %w", b.name, err)
		}
	}

	b.initialized.Store(true)
	b.logger.Debug("provider initialized", "virtual_type", b.virtualType.String())
	return nil
}

// Register records the virtual type and routes canonical nodes of the
// external type to this provider. Either name may be empty. It is normally
// called from Setup.
func (b *Base) Register(external, virtual string) error {
	if b.sc == nil {
		return fmt.Errorf("%w: register %s", ErrNotInitialized, b.name)
	}

	if virtual != "" {
		vt, err := b.ResolveName(virtual)
		if err != nil {
			return err
		}
		if err := b.sc.Registry().BindVirtual(vt, b.self); err != nil {
			return err
		}
		b.virtualType = vt
	}

	if external != "" {
		et, err := b.ResolveName(external)
		if err != nil {
			return err
		}
		if err := b.sc.RegisterProvider(et, b.self); err != nil {
			return err
		}
	}
	return nil
}

// Populate creates the snapshot of id below parent and fills it through
// PopulateState.
func (b *Base) Populate(ctx context.Context, pc *Context, id store.NodeID, parent store.NodeID) (state *store.NodeState, err error) {
	if !b.initialized.Load() {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, b.name)
	}

	ctx, end := b.tel.start(ctx, b.name, "populate", id.String())
	defer func() { end(err) }()

	const op = "Provider.Populate"

	parentItem, err := b.sc.ItemState(ctx, parent)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, store.NewError(op, store.KindImpossible,
				fmt.Errorf("%w: parent %v of %s: %v", store.ErrImpossibleState, parent, id, err))
		}
		return nil, store.Wrap(op, err)
	}
	parentState, ok := parentItem.(*store.NodeState)
	if !ok || parentState == nil {
		return nil, store.NewError(op, store.KindImpossible,
			fmt.Errorf("%w: parent %v of %s is not a node", store.ErrImpossibleState, parent, id))
	}

	nodeType, mixins := b.virtualType, []store.Name(nil)
	if t, ok := b.self.(Typer); ok {
		nodeType, mixins, err = t.NodeType(ctx, id)
		if err != nil {
			if store.IsStoreError(err) {
				return nil, store.Wrap(op, err)
			}
			return nil, err
		}
	}

	state = b.sc.CreateNewNode(id, nodeType, parent)
	state.Mixins = mixins
	if n, ok := id.(interface{ Name() store.Name }); ok {
		state.Name = n.Name()
	}

	def, err := b.LookupNodeDefinition(parentState, state.NodeType, state.Name)
	if err != nil {
		return nil, err
	}
	state.Definition = def

	state, err = b.fill(ctx, pc, state)
	if err != nil {
		if store.IsStoreError(err) {
			return nil, store.Wrap(op, err)
		}
		return nil, err
	}
	return state, nil
}

// PopulateState fills state through the provider's Filler hook. Without a
// hook the state is returned unchanged.
func (b *Base) PopulateState(ctx context.Context, pc *Context, state *store.NodeState) (result *store.NodeState, err error) {
	if !b.initialized.Load() {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, b.name)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: nil snapshot", store.ErrInvalidItemState)
	}

	ctx, end := b.tel.start(ctx, b.name, "populate_state", fmt.Sprint(state.ID))
	defer func() { end(err) }()

	return b.fill(ctx, pc, state)
}

func (b *Base) fill(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error) {
	f, ok := b.self.(Filler)
	if !ok {
		return state, nil
	}
	return f.Fill(ctx, pc, state)
}

// LookupPropertyDefinition returns the definition of property name on nodes
// of nodeType.
func (b *Base) LookupPropertyDefinition(nodeType, name store.Name, multiple bool) (*store.PropertyDefinition, error) {
	def, err := b.sc.NodeTypeRegistry().PropertyDefinition(nodeType, nil, name, multiple)
	if err != nil {
		return nil, store.NewError("Provider.LookupPropertyDefinition", store.KindSchema, err).
			WithContext(map[string]any{"node_type": nodeType.String(), "property": name.String()})
	}
	return def, nil
}

// LookupNodeDefinition returns the definition for a child named childName of
// childType below parent. When the parent's type declares no applicable
// child, the lookup is retried against nt:unstructured.
func (b *Base) LookupNodeDefinition(parent *store.NodeState, childType, childName store.Name) (*store.NodeDefinition, error) {
	reg := b.sc.NodeTypeRegistry()

	def, err := reg.ChildDefinition(parent.NodeType, parent.Mixins, childName, childType)
	if err == nil {
		return def, nil
	}
	if !errors.Is(err, nodetype.ErrNoApplicableDefinition) && !errors.Is(err, nodetype.ErrNodeTypeNotRegistered) {
		return nil, store.Wrap("Provider.LookupNodeDefinition", err)
	}

	def, ferr := reg.ChildDefinition(nodetype.Unstructured, nil, childName, childType)
	if ferr == nil {
		b.logger.Debug("child definition taken from fallback type",
			"parent_type", parent.NodeType.String(),
			"child_type", childType.String(),
			"child", childName.String())
		return def, nil
	}

	return nil, store.NewError("Provider.LookupNodeDefinition", store.KindSchema,
		fmt.Errorf("%w: %s of type %s under %s", store.ErrNoDefinition, childName, childType, parent.NodeType)).
		WithContext(map[string]any{
			"parent":      fmt.Sprint(parent.ID),
			"parent_type": parent.NodeType.String(),
			"child_type":  childType.String(),
		})
}

// NewProperty adds a property carrying values to state. The definition is
// looked up on the state's type, falling back to nt:unstructured.
func (b *Base) NewProperty(state *store.NodeState, name store.Name, multiple bool, values ...string) (*store.PropertyState, error) {
	def, err := b.LookupPropertyDefinition(state.NodeType, name, multiple)
	if err != nil {
		var ferr error
		def, ferr = b.LookupPropertyDefinition(nodetype.Unstructured, name, multiple)
		if ferr != nil {
			return nil, err
		}
	}

	p := b.sc.CreateNewProperty(name, state.ID)
	p.Definition = def
	p.Multiple = multiple
	if def.Type != store.TypeUndefined && def.Type != "" {
		p.Type = def.Type
	}
	p.SetValues(values...)
	state.SetProperty(p)
	return p, nil
}

// Property returns the canonical values of property name on the canonical
// counterpart of id. A missing property yields nil without error.
func (b *Base) Property(ctx context.Context, id store.NodeID, name string) ([]string, error) {
	if b.sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, b.name)
	}

	n, err := b.ResolveName(name)
	if err != nil {
		return nil, err
	}

	item, err := b.sc.CanonicalItemState(ctx, store.PropertyID{Parent: store.CanonicalOf(id), Name: n})
	if err != nil {
		if store.IsNotFound(err) {
			b.logger.Debug("property not present", "node", fmt.Sprint(id), "property", name)
			return nil, nil
		}
		return nil, store.Wrap("Provider.Property", err)
	}

	ps, ok := item.(*store.PropertyState)
	if !ok || ps == nil {
		return nil, nil
	}
	return slices.Clone(ps.Values), nil
}

// PropertyOr is Property with def returned for missing properties and read
// failures.
func (b *Base) PropertyOr(ctx context.Context, id store.NodeID, name string, def ...string) []string {
	values, err := b.Property(ctx, id, name)
	if err != nil {
		b.logger.Debug("property read failed", "node", fmt.Sprint(id), "property", name, "error", err)
		return def
	}
	if values == nil {
		return def
	}
	return values
}

// ResolveName parses name once per provider lifetime.
func (b *Base) ResolveName(name string) (store.Name, error) {
	if v, ok := b.names.Load(name); ok {
		return v.(store.Name), nil
	}
	if b.sc == nil {
		return store.Name{}, fmt.Errorf("%w: %s", ErrNotInitialized, b.name)
	}

	n, err := b.sc.ResolveName(name)
	if err != nil {
		return store.Name{}, err
	}
	b.names.Store(name, n)
	return n, nil
}

// ResolvePath parses path once per provider lifetime.
func (b *Base) ResolvePath(path string) (store.Path, error) {
	if v, ok := b.paths.Load(path); ok {
		p := v.(store.Path)
		p.Elements = slices.Clone(p.Elements)
		return p, nil
	}
	if b.sc == nil {
		return store.Path{}, fmt.Errorf("%w: %s", ErrNotInitialized, b.name)
	}

	p, err := b.sc.ResolvePath(path)
	if err != nil {
		return store.Path{}, err
	}
	b.paths.Store(path, p)
	p.Elements = slices.Clone(p.Elements)
	return p, nil
}

// Lookup returns the provider registered under name.
func (b *Base) Lookup(name string) (Provider, error) {
	if b.sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, b.name)
	}
	return b.sc.Registry().Lookup(name)
}

// LookupProvider returns the provider bound to the node type typeName.
func (b *Base) LookupProvider(typeName string) (Provider, error) {
	n, err := b.ResolveName(typeName)
	if err != nil {
		return nil, err
	}
	return b.sc.Registry().LookupType(n)
}
