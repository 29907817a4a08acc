package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/store/memstore"
	"github.com/zero-day-ai/dataprovider/uuidgen"
)

// testStore is a minimal StoreContext over a memstore.
type testStore struct {
	backend    *memstore.Store
	namespaces *store.Namespaces
	types      *nodetype.Registry
	gen        uuidgen.Generator
	registry   *Registry
	props      map[store.Name]bool
	logger     *slog.Logger
	tracer     trace.Tracer

	resolveCalls atomic.Int32
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	return &testStore{
		backend:    memstore.New(nodetype.Folder),
		namespaces: store.NewNamespaces(),
		types:      nodetype.NewRegistry(),
		gen:        uuidgen.NewDeterministic(uuid.Nil),
		registry:   NewRegistry(),
		props:      make(map[store.Name]bool),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     tracenoop.NewTracerProvider().Tracer("test"),
	}
}

func (s *testStore) root(t *testing.T) store.CanonicalID {
	t.Helper()
	id, err := s.backend.Root(context.Background())
	require.NoError(t, err)
	return store.NewCanonicalID(id)
}

// addNode adds a canonical child of parent carrying the given multi-valued
// properties.
func (s *testStore) addNode(t *testing.T, parent store.NodeID, name string, props map[string][]string) store.CanonicalID {
	t.Helper()
	ctx := context.Background()

	n, err := s.namespaces.ResolveName(name)
	require.NoError(t, err)
	id, err := s.backend.AddNode(ctx, parent.UUID(), n, nodetype.Unstructured)
	require.NoError(t, err)

	for prop, values := range props {
		pn, err := s.namespaces.ResolveName(prop)
		require.NoError(t, err)
		require.NoError(t, s.backend.SetProperty(ctx, id, pn, values...))
	}
	return store.NewCanonicalID(id)
}

func (s *testStore) NodeTypeRegistry() *nodetype.Registry { return s.types }

func (s *testStore) HierarchyManager() store.HierarchyManager {
	return store.NewHierarchyManager(nil, s)
}

func (s *testStore) GenerateUUID(pc *Context, canonical store.NodeID, seed uuidgen.Seed) uuid.UUID {
	seed.Parameter = pc.Parameter()
	if canonical != nil {
		seed.Canonical = canonical.UUID().String()
	}
	return s.gen.Generate(seed)
}

func (s *testStore) CreateNewNode(id store.NodeID, nodeType store.Name, parent store.NodeID) *store.NodeState {
	return store.NewNodeState(id, nodeType, parent, store.StatusNew)
}

func (s *testStore) CreateNewProperty(name store.Name, parent store.NodeID) *store.PropertyState {
	return store.NewPropertyState(name, parent, store.StatusNew)
}

func (s *testStore) ItemState(ctx context.Context, id store.ItemID) (store.ItemState, error) {
	if v, ok := id.(VirtualID); ok {
		state, err := v.Populate(ctx, nil)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, fmt.Errorf("%w: %s", store.ErrNoSuchItem, id)
		}
		return state, nil
	}
	return s.CanonicalItemState(ctx, id)
}

func (s *testStore) CanonicalItemState(ctx context.Context, id store.ItemID) (store.ItemState, error) {
	switch v := id.(type) {
	case store.PropertyID:
		if _, virtual := v.Parent.(VirtualID); virtual {
			return nil, fmt.Errorf("%w: %s", store.ErrNoSuchItem, v)
		}
		return s.backend.Property(ctx, v.Parent.UUID(), v.Name)
	case store.NodeID:
		return s.backend.Node(ctx, v.UUID())
	}
	return nil, errors.New("unsupported id")
}

func (s *testStore) ResolveName(name string) (store.Name, error) {
	s.resolveCalls.Add(1)
	return s.namespaces.ResolveName(name)
}

func (s *testStore) ResolvePath(path string) (store.Path, error) {
	return s.namespaces.ResolvePath(path)
}

func (s *testStore) RegisterProvider(nodeType store.Name, p Provider) error {
	return s.registry.BindExternal(nodeType, p)
}

func (s *testStore) RegisterProviderProperty(name store.Name) { s.props[name] = true }

func (s *testStore) IsProviderProperty(name store.Name) bool { return s.props[name] }

func (s *testStore) Registry() *Registry { return s.registry }

func (s *testStore) Logger() *slog.Logger { return s.logger }

func (s *testStore) Tracer() trace.Tracer { return s.tracer }

func (s *testStore) Meter() metric.Meter { return metricnoop.NewMeterProvider().Meter("test") }

// testProvider is a configurable provider used across the tests.
type testProvider struct {
	*Base
	external, virtual string
	setupErr          error
	fill              func(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error)
}

func newTestProvider(name, external, virtual string) *testProvider {
	p := &testProvider{external: external, virtual: virtual}
	p.Base = NewBase(p, name)
	return p
}

func (p *testProvider) Setup() error {
	if p.setupErr != nil {
		return p.setupErr
	}
	return p.Register(p.external, p.virtual)
}

func (p *testProvider) Fill(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error) {
	if p.fill == nil {
		return state, nil
	}
	return p.fill(ctx, pc, state)
}

// startedProvider returns an initialized provider producing nt:unstructured
// nodes.
func startedProvider(t *testing.T, s *testStore, name string) *testProvider {
	t.Helper()
	p := newTestProvider(name, "", "nt:unstructured")
	require.NoError(t, s.registry.Add(p))
	require.NoError(t, p.Initialize(s))
	return p
}

func mustName(t *testing.T, s *testStore, name string) store.Name {
	t.Helper()
	n, err := s.namespaces.ResolveName(name)
	require.NoError(t, err)
	return n
}
