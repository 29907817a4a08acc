package providers

import (
	"context"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// ViewName is the registered name of the view provider.
const ViewName = "view"

// View mirrors a subtree through a facet view. Variants below a handle are
// kept only when they satisfy the view, children are ordered by the order
// filter, and in a singled view only the first variant of a handle is
// shown.
//
// Canonical nav:viewfolder nodes configure a view with nav:docbase, nav:view,
// nav:order and nav:singled. Other providers create view identifiers owned
// by this provider to expose documents.
type View struct {
	*provider.Base
	names names
}

// NewView creates the view provider.
func NewView() *View {
	v := &View{}
	v.Base = provider.NewBase(v, ViewName)
	return v
}

// Setup implements provider.Setup.
func (v *View) Setup() error {
	n, err := resolveNames(v.ResolveName)
	if err != nil {
		return err
	}
	v.names = n

	sc := v.Store()
	if err := registerNodeTypes(sc.NodeTypeRegistry(), n); err != nil {
		return err
	}
	for _, p := range []store.Name{n.docbase, n.view, n.order, n.singled} {
		sc.RegisterProviderProperty(p)
	}
	return v.Register(TypeViewFolder, "")
}

// NodeType implements provider.Typer.
func (v *View) NodeType(ctx context.Context, id store.NodeID) (store.Name, []store.Name, error) {
	return upstreamType(ctx, v.Store(), id)
}

// Fill implements provider.Filler.
func (v *View) Fill(ctx context.Context, pc *provider.Context, state *store.NodeState) (*store.NodeState, error) {
	sc := v.Store()

	vid, ok := provider.FilterableOf(state.ID)
	if !ok {
		base := docbase(ctx, v.Base, state.ID)
		if base == nil {
			return state, nil
		}
		upstream, err := canonicalNode(ctx, sc, base)
		if err != nil {
			return nil, err
		}

		view, err := provider.ParseFilter(v.PropertyOr(ctx, state.ID, PropView))
		if err != nil {
			return nil, store.NewError("View.Fill", store.KindItemState, err)
		}
		order, err := provider.ParseFilter(v.PropertyOr(ctx, state.ID, PropOrder))
		if err != nil {
			return nil, store.NewError("View.Fill", store.KindItemState, err)
		}
		singled := first(v.PropertyOr(ctx, state.ID, PropSingled)) == "true"

		err = v.addChildren(ctx, state, upstream, pc, provider.ViewOptions{
			View:    view,
			Order:   order,
			Singled: singled,
		})
		return state, err
	}

	upstream, err := canonicalNode(ctx, sc, store.CanonicalOf(state.ID))
	if err != nil {
		return nil, err
	}
	mirrorProperties(sc, state, upstream)

	// Children inherit view, order and singled mode from vid.
	err = v.addChildren(ctx, state, upstream, nil, provider.ViewOptions{Singled: vid.IsSingledView()})
	return state, err
}

// addChildren adds view identifiers for the children of upstream to state.
// Below a handle only variants matching the view are kept. Children are
// sorted with the order filter.
func (v *View) addChildren(ctx context.Context, state, upstream *store.NodeState, pc *provider.Context, opts provider.ViewOptions) error {
	isHandle := v.Store().NodeTypeRegistry().IsNodeType(upstream.NodeType, v.names.handle)

	order, singled := opts.Order, opts.Singled
	if parent, ok := provider.FilterableOf(state.ID); ok {
		if order == nil {
			order = parent.Order()
		}
		singled = singled || parent.IsSingledView()
	}

	opts.ParentName = state.Name
	var entries []store.ChildEntry
	for _, child := range upstream.Children() {
		id, err := provider.NewViewID(v, state.ID, pc, child.Name, child.ID, opts)
		if err != nil {
			return err
		}
		if isHandle && !v.visible(ctx, id) {
			continue
		}
		entries = append(entries, store.ChildEntry{Name: child.Name, ID: id})
	}

	provider.NewChildComparator(ctx, v, order, state.Name).Sort(entries)

	if isHandle && singled {
		entries = singleVariant(entries, state.Name)
	}
	state.SetChildren(entries)
	return nil
}

// visible reports whether the canonical counterpart of id satisfies its
// view.
func (v *View) visible(ctx context.Context, id *provider.ViewID) bool {
	view := id.View()
	if len(view) == 0 {
		return true
	}
	return view.Matches(func(facet string) []string {
		return v.PropertyOr(ctx, id, facet)
	})
}

// singleVariant keeps the first entry named handle and every entry with a
// different name.
func singleVariant(entries []store.ChildEntry, handle store.Name) []store.ChildEntry {
	out := entries[:0]
	seen := false
	for _, e := range entries {
		if e.Name == handle {
			if seen {
				continue
			}
			seen = true
		}
		out = append(out, e)
	}
	return out
}
