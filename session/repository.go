package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/uuidgen"
)

// ErrNotStarted indicates a session requested before Start.
var ErrNotStarted = errors.New("session: repository not started")

// ErrAlreadyStarted indicates a second call to Start.
var ErrAlreadyStarted = errors.New("session: repository already started")

// Repository joins a canonical backend with the virtual node providers. It
// is the provider.StoreContext handed to every provider.
//
// Providers are added before Start; Start initializes them in the order
// they were added and freezes the provider registry.
type Repository struct {
	backend    store.Backend
	namespaces *store.Namespaces
	nodeTypes  *nodetype.Registry
	generator  uuidgen.Generator
	registry   *provider.Registry

	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	mu            sync.RWMutex
	providers     []provider.Provider
	providerProps map[store.Name]bool

	started   atomic.Bool
	root      store.CanonicalID
	hierarchy store.HierarchyManager
}

var _ provider.StoreContext = (*Repository)(nil)

// NewRepository creates a repository over backend.
func NewRepository(backend store.Backend, opts ...Option) *Repository {
	r := &Repository{
		backend:       backend,
		namespaces:    store.NewNamespaces(),
		nodeTypes:     nodetype.NewRegistry(),
		generator:     uuidgen.NewDeterministic(uuid.Nil),
		registry:      provider.NewRegistry(),
		logger:        slog.Default(),
		tracer:        tracenoop.NewTracerProvider().Tracer("dataprovider"),
		meter:         metricnoop.NewMeterProvider().Meter("dataprovider"),
		providerProps: make(map[store.Name]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = tracenoop.NewTracerProvider().Tracer("dataprovider")
	}
	if r.meter == nil {
		r.meter = metricnoop.NewMeterProvider().Meter("dataprovider")
	}
	return r
}

// AddProvider registers p under its name. It must be called before Start.
func (r *Repository) AddProvider(p provider.Provider) error {
	if r.started.Load() {
		return fmt.Errorf("%w: add provider %s", provider.ErrRegistryFrozen, p.Name())
	}
	if err := r.registry.Add(p); err != nil {
		return err
	}

	r.mu.Lock()
	r.providers = append(r.providers, p)
	r.mu.Unlock()
	return nil
}

// Start reads the root node, initializes the providers and freezes the
// registry.
func (r *Repository) Start(ctx context.Context) error {
	if r.started.Load() {
		return ErrAlreadyStarted
	}

	root, err := r.backend.Root(ctx)
	if err != nil {
		return fmt.Errorf("read root node: %w", err)
	}
	r.root = store.NewCanonicalID(root)
	r.hierarchy = store.NewHierarchyManager(r.root, r)

	r.mu.RLock()
	providers := append([]provider.Provider(nil), r.providers...)
	r.mu.RUnlock()

	for _, p := range providers {
		if err := p.Initialize(r); err != nil {
			return err
		}
	}

	r.registry.Freeze()
	r.started.Store(true)
	r.logger.Info("repository started", "root", root.String(), "providers", len(providers))
	return nil
}

// Started reports whether Start completed.
func (r *Repository) Started() bool { return r.started.Load() }

// RootID returns the root node id.
func (r *Repository) RootID() store.NodeID { return r.root }

// Backend returns the canonical backend.
func (r *Repository) Backend() store.Backend { return r.backend }

// Namespaces returns the namespace registry.
func (r *Repository) Namespaces() *store.Namespaces { return r.namespaces }

// Login opens a session whose population calls carry pc. A nil pc opens a
// session without parameter.
func (r *Repository) Login(pc *provider.Context) (*Session, error) {
	if !r.started.Load() {
		return nil, ErrNotStarted
	}
	return newSession(r, pc), nil
}

// NodeTypeRegistry implements provider.StoreContext.
func (r *Repository) NodeTypeRegistry() *nodetype.Registry { return r.nodeTypes }

// HierarchyManager implements provider.StoreContext.
func (r *Repository) HierarchyManager() store.HierarchyManager { return r.hierarchy }

// GenerateUUID implements provider.StoreContext. The context parameter and
// the canonical counterpart are folded into seed.
func (r *Repository) GenerateUUID(pc *provider.Context, canonical store.NodeID, seed uuidgen.Seed) uuid.UUID {
	seed.Parameter = pc.Parameter()
	if canonical != nil {
		seed.Canonical = canonical.UUID().String()
	}
	return r.generator.Generate(seed)
}

// CreateNewNode implements provider.StoreContext.
func (r *Repository) CreateNewNode(id store.NodeID, nodeType store.Name, parent store.NodeID) *store.NodeState {
	return store.NewNodeState(id, nodeType, parent, store.StatusNew)
}

// CreateNewProperty implements provider.StoreContext.
func (r *Repository) CreateNewProperty(name store.Name, parent store.NodeID) *store.PropertyState {
	return store.NewPropertyState(name, parent, store.StatusNew)
}

// ItemState implements provider.StoreContext. Calls made on behalf of a
// session go through that session's snapshot cache.
func (r *Repository) ItemState(ctx context.Context, id store.ItemID) (store.ItemState, error) {
	if s := fromContext(ctx); s != nil {
		return s.ItemState(ctx, id)
	}
	return r.itemState(ctx, nil, id)
}

// CanonicalItemState implements provider.StoreContext. Virtual identifiers
// are reported as missing.
func (r *Repository) CanonicalItemState(ctx context.Context, id store.ItemID) (store.ItemState, error) {
	switch v := id.(type) {
	case store.PropertyID:
		if v.Parent == nil || isVirtual(v.Parent) {
			return nil, fmt.Errorf("%w: property %s", store.ErrNoSuchItem, v)
		}
		return r.backend.Property(ctx, v.Parent.UUID(), v.Name)
	case store.NodeID:
		if isVirtual(v) {
			return nil, fmt.Errorf("%w: %s is virtual", store.ErrNoSuchItem, v)
		}
		return r.backend.Node(ctx, v.UUID())
	default:
		return nil, fmt.Errorf("%w: unsupported id %v", store.ErrNoSuchItem, id)
	}
}

// ResolveName implements provider.StoreContext.
func (r *Repository) ResolveName(name string) (store.Name, error) {
	return r.namespaces.ResolveName(name)
}

// ResolvePath implements provider.StoreContext.
func (r *Repository) ResolvePath(path string) (store.Path, error) {
	return r.namespaces.ResolvePath(path)
}

// RegisterProvider implements provider.StoreContext.
func (r *Repository) RegisterProvider(nodeType store.Name, p provider.Provider) error {
	if err := r.registry.BindExternal(nodeType, p); err != nil {
		return err
	}
	r.logger.Debug("provider registered", "provider", p.Name(), "node_type", nodeType.String())
	return nil
}

// RegisterProviderProperty implements provider.StoreContext.
func (r *Repository) RegisterProviderProperty(name store.Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providerProps[name] = true
}

// IsProviderProperty implements provider.StoreContext.
func (r *Repository) IsProviderProperty(name store.Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providerProps[name]
}

// Registry implements provider.StoreContext.
func (r *Repository) Registry() *provider.Registry { return r.registry }

// Logger implements provider.StoreContext.
func (r *Repository) Logger() *slog.Logger { return r.logger }

// Tracer implements provider.StoreContext.
func (r *Repository) Tracer() trace.Tracer { return r.tracer }

// Meter implements provider.StoreContext.
func (r *Repository) Meter() metric.Meter { return r.meter }

// itemState resolves id without caching.
func (r *Repository) itemState(ctx context.Context, pc *provider.Context, id store.ItemID) (store.ItemState, error) {
	switch v := id.(type) {
	case store.PropertyID:
		if v.Parent == nil {
			return nil, fmt.Errorf("%w: property without parent", store.ErrNoSuchItem)
		}
		state, err := r.nodeState(ctx, pc, v.Parent)
		if err != nil {
			return nil, err
		}
		p, ok := state.Property(v.Name)
		if !ok {
			return nil, fmt.Errorf("%w: property %s", store.ErrNoSuchItem, v)
		}
		return p.Clone(), nil
	case store.NodeID:
		return r.nodeState(ctx, pc, v)
	default:
		return nil, fmt.Errorf("%w: unsupported id %v", store.ErrNoSuchItem, id)
	}
}

// nodeState computes virtual nodes through their identifier and reads
// canonical ones from the backend, letting the provider bound to the node's
// type augment them.
func (r *Repository) nodeState(ctx context.Context, pc *provider.Context, id store.NodeID) (*store.NodeState, error) {
	if v, ok := id.(provider.VirtualID); ok {
		state, err := v.Populate(ctx, nil)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, fmt.Errorf("%w: virtual node %s", store.ErrNoSuchItem, id)
		}
		return state, nil
	}

	state, err := r.backend.Node(ctx, id.UUID())
	if err != nil {
		return nil, err
	}

	p, ok := r.registry.External(state.NodeType)
	if !ok {
		return state, nil
	}
	augmented, err := p.PopulateState(ctx, pc, state)
	if err != nil {
		if errors.Is(err, store.ErrInvalidItemState) || !store.IsStoreError(err) {
			return nil, err
		}
		r.logger.Warn("canonical node not augmented",
			"provider", p.Name(),
			"id", id.String(),
			"error", err)
		return state, nil
	}
	return augmented, nil
}

func isVirtual(id store.NodeID) bool {
	_, ok := provider.UnwrapID(id).(provider.VirtualID)
	return ok
}
