package providers

import (
	"errors"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
)

// Node type names used by the providers.
const (
	TypeHandle          = "nav:handle"
	TypeDocument        = "nav:document"
	TypeMirror          = "nav:mirror"
	TypeViewFolder      = "nav:viewfolder"
	TypeFacetNavigation = "nav:facetnavigation"
	TypeFacetValue      = "nav:facetvalue"
	TypeResult          = "nav:result"
)

// Property names used by the providers.
const (
	PropDocbase = "nav:docbase"
	PropFacets  = "nav:facets"
	PropOrder   = "nav:order"
	PropView    = "nav:view"
	PropSingled = "nav:singled"
	PropDepth   = "nav:depth"
	PropCount   = "nav:count"
	PropFacet   = "nav:facet"
	PropValue   = "nav:value"
)

// NameResult is the name of the result set child of facet navigation nodes.
const NameResult = "nav:result"

// names holds the resolved forms of the names above.
type names struct {
	handle, document, mirror, viewFolder, facetNavigation, facetValue, result store.Name

	docbase, facets, order, view, singled, depth, count, facet, value store.Name

	resultChild store.Name
}

func resolveNames(resolve func(string) (store.Name, error)) (names, error) {
	var n names
	targets := []struct {
		dst *store.Name
		src string
	}{
		{&n.handle, TypeHandle},
		{&n.document, TypeDocument},
		{&n.mirror, TypeMirror},
		{&n.viewFolder, TypeViewFolder},
		{&n.facetNavigation, TypeFacetNavigation},
		{&n.facetValue, TypeFacetValue},
		{&n.result, TypeResult},
		{&n.docbase, PropDocbase},
		{&n.facets, PropFacets},
		{&n.order, PropOrder},
		{&n.view, PropView},
		{&n.singled, PropSingled},
		{&n.depth, PropDepth},
		{&n.count, PropCount},
		{&n.facet, PropFacet},
		{&n.value, PropValue},
		{&n.resultChild, NameResult},
	}
	for _, t := range targets {
		resolved, err := resolve(t.src)
		if err != nil {
			return names{}, err
		}
		*t.dst = resolved
	}
	return n, nil
}

// nodeTypes returns the definitions of the navigation node types, supertypes
// first.
func (n names) nodeTypes() []nodetype.NodeType {
	anyChild := nodetype.ChildDef{
		Residual:         true,
		RequiredTypes:    []store.Name{nodetype.Base},
		DefaultType:      nodetype.Unstructured,
		SameNameSiblings: true,
	}
	anyProperty := []nodetype.PropertyDef{
		{Residual: true, Type: store.TypeUndefined, Multiple: true},
		{Residual: true, Type: store.TypeUndefined},
	}

	return []nodetype.NodeType{
		{
			Name:       n.document,
			Supertypes: []store.Name{nodetype.Unstructured},
		},
		{
			Name:       n.handle,
			Orderable:  true,
			Properties: anyProperty,
			Children: []nodetype.ChildDef{{
				Residual:         true,
				RequiredTypes:    []store.Name{nodetype.Base},
				DefaultType:      n.document,
				SameNameSiblings: true,
			}},
		},
		{
			Name: n.mirror,
			Properties: []nodetype.PropertyDef{
				{Name: n.docbase, Type: store.TypeString},
			},
			Children: []nodetype.ChildDef{anyChild},
		},
		{
			Name:       n.viewFolder,
			Supertypes: []store.Name{n.mirror},
			Properties: []nodetype.PropertyDef{
				{Name: n.view, Type: store.TypeString, Multiple: true},
				{Name: n.order, Type: store.TypeString, Multiple: true},
				{Name: n.singled, Type: store.TypeBoolean},
			},
		},
		{
			Name:       n.facetNavigation,
			Supertypes: []store.Name{n.mirror},
			Properties: []nodetype.PropertyDef{
				{Name: n.facets, Type: store.TypeString, Multiple: true},
				{Name: n.view, Type: store.TypeString, Multiple: true},
				{Name: n.order, Type: store.TypeString, Multiple: true},
				{Name: n.depth, Type: store.TypeLong},
			},
		},
		{
			// No child definitions: the result set child is placed through
			// the nt:unstructured fallback.
			Name: n.facetValue,
			Properties: []nodetype.PropertyDef{
				{Name: n.facet, Type: store.TypeString},
				{Name: n.value, Type: store.TypeString},
				{Name: n.count, Type: store.TypeLong},
			},
		},
		{
			Name: n.result,
			Properties: []nodetype.PropertyDef{
				{Name: n.count, Type: store.TypeLong},
			},
			Children: []nodetype.ChildDef{anyChild},
		},
	}
}

// RegisterNodeTypes adds the navigation node types missing from reg, with
// names resolved through ns. Providers do this themselves during Setup; it
// is exported so that configured node types can build on the navigation
// types before the providers start.
func RegisterNodeTypes(ns *store.Namespaces, reg *nodetype.Registry) error {
	n, err := resolveNames(ns.ResolveName)
	if err != nil {
		return err
	}
	return registerNodeTypes(reg, n)
}

// registerNodeTypes adds the navigation node types missing from reg.
func registerNodeTypes(reg *nodetype.Registry, n names) error {
	for _, t := range n.nodeTypes() {
		if reg.IsRegistered(t.Name) {
			continue
		}
		if err := reg.Register(t); err != nil && !errors.Is(err, nodetype.ErrInvalidNodeType) {
			return err
		}
	}
	return nil
}
