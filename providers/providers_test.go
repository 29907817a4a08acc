package providers_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/dataprovider/facet"
	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/providers"
	"github.com/zero-day-ai/dataprovider/session"
	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/store/memstore"
)

// fixture is a small content tree wired to all four providers:
//
//	/docs              c1 [blue], c2 [green red] (with attachment [red]), c3 [red], c4
//	/nav               facet navigation over /docs by color, ordered color=red
//	/deep              like /nav with depth 2
//	/mirror            mirror of /docs
//	/products/shirt    handle with variants shirt [red], shirt [blue], extra [blue]
//	/view              view of /products restricted to color=red
//	/single            singled view of /products ordered color=blue
type fixture struct {
	t       *testing.T
	ns      *store.Namespaces
	backend *memstore.Store
	repo    *session.Repository
	root    uuid.UUID
}

func (f *fixture) name(s string) store.Name {
	n, err := f.ns.ResolveName(s)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) add(parent uuid.UUID, name, nodeType string, props map[string][]string) uuid.UUID {
	ctx := context.Background()
	id, err := f.backend.AddNode(ctx, parent, f.name(name), f.name(nodeType))
	require.NoError(f.t, err)
	for p, values := range props {
		require.NoError(f.t, f.backend.SetProperty(ctx, id, f.name(p), values...))
	}
	return id
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		t:       t,
		ns:      store.NewNamespaces(),
		backend: memstore.New(nodetype.Folder),
	}
	f.root, _ = f.backend.Root(ctx)

	docs := f.add(f.root, "docs", "nt:unstructured", nil)
	f.add(docs, "c1", "nt:unstructured", map[string][]string{"color": {"blue"}})
	c2 := f.add(docs, "c2", "nt:unstructured", map[string][]string{"color": {"green", "red"}})
	f.add(c2, "attachment", "nt:unstructured", map[string][]string{"color": {"red"}})
	f.add(docs, "c3", "nt:unstructured", map[string][]string{"color": {"red"}})
	f.add(docs, "c4", "nt:unstructured", nil)

	f.add(f.root, "nav", providers.TypeFacetNavigation, map[string][]string{
		providers.PropDocbase: {docs.String()},
		providers.PropFacets:  {"color"},
		providers.PropOrder:   {"color=red"},
	})
	f.add(f.root, "deep", providers.TypeFacetNavigation, map[string][]string{
		providers.PropDocbase: {docs.String()},
		providers.PropFacets:  {"color"},
		providers.PropDepth:   {"2"},
	})
	f.add(f.root, "mirror", providers.TypeMirror, map[string][]string{
		providers.PropDocbase: {docs.String()},
		"title":               {"Mirror"},
	})
	f.add(f.root, "unconfigured", providers.TypeMirror, nil)
	f.add(f.root, "malformed", providers.TypeMirror, map[string][]string{
		providers.PropDocbase: {"not-a-uuid"},
	})
	f.add(f.root, "dangling", providers.TypeMirror, map[string][]string{
		providers.PropDocbase: {uuid.NewString()},
	})

	products := f.add(f.root, "products", "nt:unstructured", nil)
	shirt := f.add(products, "shirt", providers.TypeHandle, nil)
	f.add(shirt, "shirt", providers.TypeDocument, map[string][]string{"color": {"red"}})
	f.add(shirt, "shirt", providers.TypeDocument, map[string][]string{"color": {"blue"}})
	f.add(shirt, "extra", providers.TypeDocument, map[string][]string{"color": {"blue"}})

	f.add(f.root, "view", providers.TypeViewFolder, map[string][]string{
		providers.PropDocbase: {products.String()},
		providers.PropView:    {"color=red"},
	})
	f.add(f.root, "single", providers.TypeViewFolder, map[string][]string{
		providers.PropDocbase: {products.String()},
		providers.PropOrder:   {"color=blue"},
		providers.PropSingled: {"true"},
	})

	f.repo = session.NewRepository(f.backend,
		session.WithNamespaces(f.ns),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	for _, p := range []provider.Provider{
		providers.NewView(),
		providers.NewMirror(),
		providers.NewResultSet(),
		providers.NewFacetNavigation(),
	} {
		require.NoError(t, f.repo.AddProvider(p))
	}
	require.NoError(t, f.repo.Start(ctx))
	return f
}

func (f *fixture) login(pc *provider.Context) *session.Session {
	s, err := f.repo.Login(pc)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) node(s *session.Session, path string) *store.NodeState {
	state, err := s.NodeByPath(context.Background(), path)
	require.NoError(f.t, err, path)
	return state
}

func childNames(state *store.NodeState) []string {
	var out []string
	for _, c := range state.Children() {
		out = append(out, c.Name.Local)
	}
	return out
}

func (f *fixture) property(state *store.NodeState, name string) []string {
	p, ok := state.Property(f.name(name))
	if !ok {
		return nil
	}
	return p.Values
}

func TestFacetNavigation_Levels(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	nav := f.node(s, "/nav")
	assert.Equal(t, []string{"blue", "green", "red", "result"}, childNames(nav))

	red := f.node(s, "/nav/red")
	assert.Equal(t, f.name(providers.TypeFacetValue), red.NodeType)
	assert.Equal(t, []string{"color"}, f.property(red, providers.PropFacet))
	assert.Equal(t, []string{"red"}, f.property(red, providers.PropValue))
	assert.Equal(t, []string{"2"}, f.property(red, providers.PropCount))
	assert.Equal(t, []string{"result"}, childNames(red))

	results := f.node(s, "/nav/red/nav:result")
	assert.Equal(t, []string{"c2", "c3"}, childNames(results))
	assert.Equal(t, []string{"2"}, f.property(results, providers.PropCount))
	require.NotNil(t, results.Definition)
	assert.Equal(t, nodetype.Unstructured, results.Definition.DeclaringType,
		"facet values declare no children; the result set uses the fallback definition")
}

func TestFacetNavigation_ResultOrder(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	results := f.node(s, "/nav/nav:result")
	assert.Equal(t, []string{"c2", "c3", "c1", "c4"}, childNames(results))
	assert.Equal(t, []string{"4"}, f.property(results, providers.PropCount))

	c2 := f.node(s, "/nav/nav:result/c2")
	assert.Equal(t, []string{"green", "red"}, f.property(c2, "color"))
	assert.Equal(t, nodetype.Unstructured, c2.NodeType)
}

func TestFacetNavigation_Depth(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	red := f.node(s, "/deep/red")
	assert.Equal(t, []string{"3"}, f.property(red, providers.PropCount))
	assert.ElementsMatch(t, []string{"c2", "attachment", "c3"}, childNames(f.node(s, "/deep/red/nav:result")))
}

func TestFacetNavigation_Query(t *testing.T) {
	f := newFixture(t)
	s := f.login(provider.NewContext(`"red" in facets.color`))

	nav := f.node(s, "/nav")
	assert.Equal(t, []string{"green", "red", "result"}, childNames(nav))
	assert.Equal(t, []string{"c2", "c3"}, childNames(f.node(s, "/nav/nav:result")))
	assert.Equal(t, []string{"1"}, f.property(f.node(s, "/nav/green"), providers.PropCount))

	plain := f.login(nil)
	assert.NotEqual(t,
		f.node(s, "/nav/red").ID.UUID(),
		f.node(plain, "/nav/red").ID.UUID(),
		"the query takes part in virtual identity")
}

func TestFacetNavigation_InvalidQuery(t *testing.T) {
	f := newFixture(t)
	s := f.login(provider.NewContext("facets +"))

	_, err := s.NodeByPath(context.Background(), "/nav")
	assert.ErrorIs(t, err, facet.ErrInvalidQuery)
}

func TestFacetNavigation_StableIdentity(t *testing.T) {
	f := newFixture(t)

	a := f.node(f.login(nil), "/nav/red/nav:result")
	b := f.node(f.login(nil), "/nav/red/nav:result")

	assert.NotSame(t, a, b)
	assert.Equal(t, a.ID.UUID(), b.ID.UUID())
	for i, c := range a.Children() {
		assert.Equal(t, c.ID.UUID(), b.Children()[i].ID.UUID())
	}
}

func TestMirror(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	mirror := f.node(s, "/mirror")
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, childNames(mirror))
	assert.Equal(t, []string{"Mirror"}, f.property(mirror, "title"))

	c2 := f.node(s, "/mirror/c2")
	assert.Equal(t, nodetype.Unstructured, c2.NodeType)
	assert.Equal(t, []string{"green", "red"}, f.property(c2, "color"))
	assert.Equal(t, []string{"attachment"}, childNames(c2))

	attachment := f.node(s, "/mirror/c2/attachment")
	assert.Equal(t, []string{"red"}, f.property(attachment, "color"))

	_, virtual := attachment.ID.(provider.VirtualID)
	assert.True(t, virtual)
	assert.NotEqual(t, attachment.ID.UUID(), f.node(s, "/docs/c2/attachment").ID.UUID())
}

func TestMirror_MissingDocbase(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	for _, path := range []string{"/unconfigured", "/malformed", "/dangling"} {
		t.Run(path, func(t *testing.T) {
			state := f.node(s, path)
			assert.False(t, state.HasChildren())
		})
	}
}

func TestView_Filter(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	view := f.node(s, "/view")
	assert.Equal(t, []string{"shirt"}, childNames(view))

	handle := f.node(s, "/view/shirt")
	assert.Equal(t, f.name(providers.TypeHandle), handle.NodeType)
	assert.Equal(t, []string{"shirt"}, childNames(handle))
	assert.Equal(t, []string{"red"}, f.property(f.node(s, "/view/shirt/shirt"), "color"))

	vid, ok := provider.FilterableOf(handle.ID)
	require.True(t, ok)
	assert.Equal(t, provider.NewFilter("color", "red"), vid.View())
}

func TestView_SingledAndOrdered(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	handle := f.node(s, "/single/shirt")
	assert.Equal(t, []string{"shirt", "extra"}, childNames(handle))

	variant := f.node(s, "/single/shirt/shirt")
	assert.Equal(t, []string{"blue"}, f.property(variant, "color"))
	assert.Equal(t, f.name(providers.TypeDocument), variant.NodeType)

	vid, ok := provider.FilterableOf(variant.ID)
	require.True(t, ok)
	assert.True(t, vid.IsSingledView())
	assert.Equal(t, provider.NewFilter("color", "blue"), vid.Order())
}

func TestProviders_ConfigurationNotMirrored(t *testing.T) {
	f := newFixture(t)
	s := f.login(nil)

	for _, p := range []string{providers.PropDocbase, providers.PropView, providers.PropOrder, providers.PropFacets} {
		assert.True(t, f.repo.IsProviderProperty(f.name(p)), p)
	}

	handle := f.node(s, "/view/shirt")
	assert.Nil(t, f.property(handle, providers.PropDocbase))
}

func TestProviders_Registration(t *testing.T) {
	f := newFixture(t)
	reg := f.repo.Registry()

	for typ, name := range map[string]string{
		providers.TypeMirror:          providers.MirrorName,
		providers.TypeViewFolder:      providers.ViewName,
		providers.TypeFacetNavigation: providers.FacetNavigationName,
		providers.TypeFacetValue:      providers.FacetNavigationName,
		providers.TypeResult:          providers.ResultSetName,
	} {
		p, err := reg.LookupType(f.name(typ))
		require.NoError(t, err, typ)
		assert.Equal(t, name, p.Name(), typ)
	}

	for _, typ := range []string{providers.TypeHandle, providers.TypeDocument, providers.TypeResult} {
		assert.True(t, f.repo.NodeTypeRegistry().IsRegistered(f.name(typ)), typ)
	}
}

func TestFacetNavigation_RequiresResultSet(t *testing.T) {
	repo := session.NewRepository(memstore.New(nodetype.Folder),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, repo.AddProvider(providers.NewFacetNavigation()))

	err := repo.Start(context.Background())
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

func TestRegisterNodeTypes(t *testing.T) {
	ns := store.NewNamespaces()
	reg := nodetype.NewRegistry()

	require.NoError(t, providers.RegisterNodeTypes(ns, reg))
	require.NoError(t, providers.RegisterNodeTypes(ns, reg), "registration is idempotent")

	viewFolder, err := ns.ResolveName(providers.TypeViewFolder)
	require.NoError(t, err)
	mirror, err := ns.ResolveName(providers.TypeMirror)
	require.NoError(t, err)
	assert.True(t, reg.IsNodeType(viewFolder, mirror))
}
