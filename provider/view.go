package provider

import (
	"context"

	"github.com/zero-day-ai/dataprovider/store"
)

// ViewOptions configures a ViewID. Nil filters inherit from a Filterable
// parent.
type ViewOptions struct {
	View       Filter
	Order      Filter
	Singled    bool
	ParentName store.Name
}

// ViewID is a mirror identifier carrying a view, an order and the name of
// its logical parent document.
type ViewID struct {
	*MirrorID
	view       Filter
	order      Filter
	singled    bool
	parentName store.Name
}

// NewViewID creates the view of upstream named name below parent. Filters
// left nil in opts are inherited from parent when it is Filterable, and a
// singled parent makes the child singled.
func NewViewID(p Provider, parent store.NodeID, pc *Context, name store.Name, upstream store.NodeID, opts ViewOptions) (*ViewID, error) {
	m, err := NewMirrorID(p, parent, pc, name, upstream)
	if err != nil {
		return nil, err
	}

	v := &ViewID{
		MirrorID:   m,
		view:       opts.View.Clone(),
		order:      opts.Order.Clone(),
		singled:    opts.Singled,
		parentName: opts.ParentName,
	}
	if pf, ok := FilterableOf(parent); ok {
		if opts.View == nil {
			v.view = pf.View()
		}
		if opts.Order == nil {
			v.order = pf.Order()
		}
		v.singled = v.singled || pf.IsSingledView()
	}
	m.NodeID.self = v
	return v, nil
}

// View returns a copy of the view.
func (v *ViewID) View() Filter { return v.view.Clone() }

// Order returns a copy of the order.
func (v *ViewID) Order() Filter { return v.order.Clone() }

// IsSingledView reports whether only one variant per handle is shown.
func (v *ViewID) IsSingledView() bool { return v.singled }

// ParentName returns the name of the node's logical parent, typically the
// handle a document variant lives under.
func (v *ViewID) ParentName() store.Name { return v.parentName }

// Comparator returns the ordering of this node's children. Facet values are
// read through the provider when it implements PropertyReader.
func (v *ViewID) Comparator(ctx context.Context) *ChildComparator {
	reader, _ := v.Provider().(PropertyReader)
	return NewChildComparator(ctx, reader, v.order, v.Name())
}
