package providers

import (
	"context"
	"slices"
	"strconv"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// FacetNavigationName is the registered name of the facet navigation
// provider.
const FacetNavigationName = "facetnavigation"

// DefaultDepth is the number of levels below the docbase searched for
// documents when nav:depth is not set.
const DefaultDepth = 1

// FacetNavigation turns a canonical nav:facetnavigation node into a
// drill-down tree. The node lists one nav:facetvalue child per distinct
// value of its first facet; each facet value node lists the values of the
// next facet among the documents it selects, and so on. Every level also
// has a nav:result child listing the selected documents.
//
// The navigation node is configured with nav:docbase, nav:facets and the
// optional nav:view, nav:order and nav:depth properties. View and order
// entries have the form facet=value.
type FacetNavigation struct {
	*provider.Base
	names  names
	result provider.Provider
}

// NewFacetNavigation creates the facet navigation provider. It requires the
// result set provider to be registered as well.
func NewFacetNavigation() *FacetNavigation {
	f := &FacetNavigation{}
	f.Base = provider.NewBase(f, FacetNavigationName)
	return f
}

// Setup implements provider.Setup.
func (f *FacetNavigation) Setup() error {
	n, err := resolveNames(f.ResolveName)
	if err != nil {
		return err
	}
	f.names = n

	sc := f.Store()
	if err := registerNodeTypes(sc.NodeTypeRegistry(), n); err != nil {
		return err
	}
	for _, p := range []store.Name{n.docbase, n.facets, n.view, n.order, n.depth} {
		sc.RegisterProviderProperty(p)
	}
	if err := f.Register(TypeFacetNavigation, TypeFacetValue); err != nil {
		return err
	}

	f.result, err = f.Lookup(ResultSetName)
	return err
}

// navConfig is the configuration read from a facet navigation node.
type navConfig struct {
	docbase store.NodeID
	facets  []string
	view    provider.Filter
	order   provider.Filter
	depth   int
}

// facetNames returns every facet a document must be read with.
func (c navConfig) facetNames(view, order provider.Filter) []string {
	out := slices.Clone(c.facets)
	for _, f := range append(view.Facets(), order.Facets()...) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func readNavConfig(ctx context.Context, b *provider.Base, node store.NodeID) (navConfig, error) {
	cfg := navConfig{
		docbase: docbase(ctx, b, node),
		facets:  b.PropertyOr(ctx, node, PropFacets),
		depth:   depthOf(b.PropertyOr(ctx, node, PropDepth), DefaultDepth),
	}

	var err error
	if cfg.view, err = provider.ParseFilter(b.PropertyOr(ctx, node, PropView)); err != nil {
		return navConfig{}, store.NewError("FacetNavigation.config", store.KindItemState, err)
	}
	if cfg.order, err = provider.ParseFilter(b.PropertyOr(ctx, node, PropOrder)); err != nil {
		return navConfig{}, store.NewError("FacetNavigation.config", store.KindItemState, err)
	}
	return cfg, nil
}

// anchorOf walks up the parents of id to the canonical facet navigation
// node and counts the facet value levels on the way.
func anchorOf(id store.NodeID, fn provider.Provider) (store.NodeID, int) {
	level := 0
	cur := provider.UnwrapID(id)
	for {
		v, ok := cur.(provider.VirtualID)
		if !ok {
			return cur, level
		}
		if v.Provider() == fn {
			level++
		}
		p, ok := cur.(interface{ Parent() store.NodeID })
		if !ok {
			return nil, level
		}
		cur = provider.UnwrapID(p.Parent())
	}
}

// Fill implements provider.Filler.
func (f *FacetNavigation) Fill(ctx context.Context, pc *provider.Context, state *store.NodeState) (*store.NodeState, error) {
	anchor, level := anchorOf(state.ID, f)
	if anchor == nil {
		return state, nil
	}
	cfg, err := readNavConfig(ctx, f.Base, anchor)
	if err != nil {
		return nil, err
	}

	view, order := cfg.view, cfg.order
	if fid, ok := provider.FilterableOf(state.ID); ok {
		view, order = fid.View(), fid.Order()
	}

	var matched []document
	if cfg.docbase != nil {
		docs, err := collectDocuments(ctx, f.Base, cfg.docbase, cfg.depth, cfg.facetNames(view, order))
		if err != nil {
			return nil, err
		}
		if matched, err = matching(docs, view, pc); err != nil {
			return nil, err
		}
	}

	if level > 0 && level <= len(cfg.facets) {
		facetName := cfg.facets[level-1]
		value, _ := view.Get(facetName)
		if err := f.setProperties(state, facetName, value, len(matched)); err != nil {
			return nil, err
		}
	}

	if cfg.docbase == nil {
		return state, nil
	}

	if level < len(cfg.facets) {
		next := cfg.facets[level]
		for _, value := range distinctValues(matched, next) {
			id, err := provider.NewViewID(f, state.ID, pc, valueName(value), cfg.docbase, provider.ViewOptions{
				View:       view.With(next, value),
				Order:      order,
				ParentName: state.Name,
			})
			if err != nil {
				return nil, err
			}
			state.AddChild(id.Name(), id)
		}
	}

	resultID, err := provider.NewViewID(f.result, state.ID, pc, f.names.resultChild, cfg.docbase, provider.ViewOptions{
		View:       view,
		Order:      order,
		ParentName: state.Name,
	})
	if err != nil {
		return nil, err
	}
	state.AddChild(f.names.resultChild, resultID)
	return state, nil
}

func (f *FacetNavigation) setProperties(state *store.NodeState, facetName, value string, count int) error {
	if _, err := f.NewProperty(state, f.names.facet, false, facetName); err != nil {
		return err
	}
	if _, err := f.NewProperty(state, f.names.value, false, value); err != nil {
		return err
	}
	_, err := f.NewProperty(state, f.names.count, false, strconv.Itoa(count))
	return err
}

// distinctValues returns the sorted distinct values of facet among docs.
func distinctValues(docs []document, facet string) []string {
	var out []string
	for _, d := range docs {
		for _, v := range d.values(facet) {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out
}
