package providers

import (
	"context"
	"strconv"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// ResultSetName is the registered name of the result set provider.
const ResultSetName = "resultset"

// ResultSet computes nav:result nodes: the documents below the docbase of
// the enclosing facet navigation that satisfy the inherited view and the
// query of the provider context. Documents are listed as view identifiers
// owned by the view provider, ordered by the inherited order, and the
// number of documents is stored in nav:count.
type ResultSet struct {
	*provider.Base
	names names
	view  provider.Provider
}

// NewResultSet creates the result set provider. It requires the view
// provider to be registered as well.
func NewResultSet() *ResultSet {
	r := &ResultSet{}
	r.Base = provider.NewBase(r, ResultSetName)
	return r
}

// Setup implements provider.Setup.
func (r *ResultSet) Setup() error {
	n, err := resolveNames(r.ResolveName)
	if err != nil {
		return err
	}
	r.names = n

	if err := registerNodeTypes(r.Store().NodeTypeRegistry(), n); err != nil {
		return err
	}
	if err := r.Register("", TypeResult); err != nil {
		return err
	}

	r.view, err = r.Lookup(ViewName)
	return err
}

// Fill implements provider.Filler.
func (r *ResultSet) Fill(ctx context.Context, pc *provider.Context, state *store.NodeState) (*store.NodeState, error) {
	rid, ok := provider.FilterableOf(state.ID)
	if !ok {
		return state, nil
	}
	anchor, _ := anchorOf(state.ID, nil)
	if anchor == nil {
		return state, nil
	}
	cfg, err := readNavConfig(ctx, r.Base, anchor)
	if err != nil {
		return nil, err
	}

	var matched []document
	if cfg.docbase != nil {
		view, order := rid.View(), rid.Order()
		docs, err := collectDocuments(ctx, r.Base, cfg.docbase, cfg.depth, cfg.facetNames(view, order))
		if err != nil {
			return nil, err
		}
		if matched, err = matching(docs, view, pc); err != nil {
			return nil, err
		}
	}

	entries := make([]store.ChildEntry, 0, len(matched))
	for _, d := range matched {
		id, err := provider.NewViewID(r.view, state.ID, pc, d.state.Name, d.state.ID, provider.ViewOptions{
			ParentName: d.parent,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, store.ChildEntry{Name: d.state.Name, ID: id})
	}
	provider.NewChildComparator(ctx, r, rid.Order(), state.Name).Sort(entries)
	state.SetChildren(entries)

	if _, err := r.NewProperty(state, r.names.count, false, strconv.Itoa(len(matched))); err != nil {
		return nil, err
	}
	return state, nil
}
