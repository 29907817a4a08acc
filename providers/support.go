package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zero-day-ai/dataprovider/facet"
	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// canonicalNode reads the persisted snapshot of id.
func canonicalNode(ctx context.Context, sc provider.StoreContext, id store.NodeID) (*store.NodeState, error) {
	item, err := sc.CanonicalItemState(ctx, id)
	if err != nil {
		return nil, err
	}
	state, ok := item.(*store.NodeState)
	if !ok || state == nil {
		return nil, fmt.Errorf("%w: %s is not a node", store.ErrItemState, id)
	}
	return state, nil
}

// docbase reads the nav:docbase property of the canonical node id. A missing
// or malformed docbase yields nil.
func docbase(ctx context.Context, b *provider.Base, id store.NodeID) store.NodeID {
	value := first(b.PropertyOr(ctx, id, PropDocbase))
	if value == "" {
		return nil
	}
	cid, err := store.ParseCanonicalID(value)
	if err != nil {
		b.Logger().Warn("malformed docbase", "node", id.String(), "docbase", value, "error", err)
		return nil
	}
	return cid
}

// mirrorProperties copies the properties of upstream onto state. Identifier
// and provider configuration properties are skipped.
func mirrorProperties(sc provider.StoreContext, state, upstream *store.NodeState) {
	for _, p := range upstream.Properties() {
		if p.Name == nodetype.PropUUID || sc.IsProviderProperty(p.Name) {
			continue
		}
		c := p.Clone()
		c.ParentID = state.ID
		c.Status = store.StatusNew
		state.SetProperty(c)
	}
}

// upstreamType returns the type of the canonical node mirrored by id.
func upstreamType(ctx context.Context, sc provider.StoreContext, id store.NodeID) (store.Name, []store.Name, error) {
	up := store.CanonicalOf(id)
	if up == nil || up == id {
		return store.Name{}, nil, fmt.Errorf("%w: %s mirrors nothing", store.ErrNoSuchItem, id)
	}
	state, err := canonicalNode(ctx, sc, up)
	if err != nil {
		return store.Name{}, nil, err
	}
	return state.NodeType, state.Mixins, nil
}

// document is a canonical node considered by faceted navigation.
type document struct {
	state  *store.NodeState
	parent store.Name
	facets map[string][]string
}

func (d document) values(facet string) []string {
	return d.facets[facet]
}

func (d document) query() facet.Document {
	return facet.Document{Name: d.state.Name.Local, Facets: d.facets}
}

// collectDocuments returns the canonical nodes within depth levels below
// base, in document order. The facets named in facetNames are read into each
// document.
func collectDocuments(ctx context.Context, b *provider.Base, base store.NodeID, depth int, facetNames []string) ([]document, error) {
	sc := b.Store()

	resolved := make(map[string]store.Name, len(facetNames))
	for _, f := range facetNames {
		n, err := b.ResolveName(f)
		if err != nil {
			return nil, err
		}
		resolved[f] = n
	}

	var docs []document
	var walk func(id store.NodeID, level int) error
	walk = func(id store.NodeID, level int) error {
		state, err := canonicalNode(ctx, sc, id)
		if err != nil {
			return err
		}
		for _, child := range state.Children() {
			childState, err := canonicalNode(ctx, sc, child.ID)
			if err != nil {
				if store.IsNotFound(err) {
					continue
				}
				return err
			}
			docs = append(docs, document{
				state:  childState,
				parent: state.Name,
				facets: readFacets(childState, resolved),
			})
			if level < depth {
				if err := walk(child.ID, level+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(base, 1); err != nil {
		return nil, err
	}
	return docs, nil
}

func readFacets(state *store.NodeState, resolved map[string]store.Name) map[string][]string {
	facets := make(map[string][]string, len(resolved))
	for f, n := range resolved {
		if p, ok := state.Property(n); ok && len(p.Values) > 0 {
			facets[f] = append([]string(nil), p.Values...)
		}
	}
	return facets
}

// matching returns the documents satisfying view and the query of pc.
func matching(docs []document, view provider.Filter, pc *provider.Context) ([]document, error) {
	q, err := pc.Query()
	if err != nil {
		return nil, err
	}

	var out []document
	for _, d := range docs {
		if !view.Matches(d.values) {
			continue
		}
		ok, err := q.Matches(d.query())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// valueName turns a facet value into a legal node name.
func valueName(value string) store.Name {
	local := strings.ReplaceAll(url.PathEscape(value), ":", "%3A")
	switch local {
	case "":
		local = "_"
	case "_":
		local = "%5F"
	case ".", "..":
		local = strings.ReplaceAll(local, ".", "%2E")
	}
	return store.NewName("", local)
}

// depthOf parses a depth property, falling back to def.
func depthOf(values []string, def int) int {
	if len(values) == 0 {
		return def
	}
	d, err := strconv.Atoi(values[0])
	if err != nil || d < 1 {
		return def
	}
	return d
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
