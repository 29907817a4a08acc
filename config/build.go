package config

import (
	"fmt"
	"sort"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
)

// BuildNamespaces returns a namespace registry holding the built-in prefixes
// and the configured ones.
func (c *Config) BuildNamespaces() (*store.Namespaces, error) {
	ns := store.NewNamespaces()

	prefixes := make([]string, 0, len(c.Namespaces))
	for p := range c.Namespaces {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	for _, p := range prefixes {
		if err := ns.Register(p, c.Namespaces[p]); err != nil {
			return nil, fmt.Errorf("namespace %s: %w", p, err)
		}
	}
	return ns, nil
}

// RegisterNodeTypes resolves the configured node types against ns and adds
// them to reg in declaration order. Supertypes must be declared first.
func (c *Config) RegisterNodeTypes(ns *store.Namespaces, reg *nodetype.Registry) error {
	for i, cfg := range c.NodeTypes {
		t, err := cfg.build(ns)
		if err != nil {
			return fmt.Errorf("node_types[%d] %s: %w", i, cfg.Name, err)
		}
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("node_types[%d] %s: %w", i, cfg.Name, err)
		}
	}
	return nil
}

func (cfg NodeTypeConfig) build(ns *store.Namespaces) (nodetype.NodeType, error) {
	name, err := ns.ResolveName(cfg.Name)
	if err != nil {
		return nodetype.NodeType{}, err
	}
	supertypes, err := resolveAll(ns, cfg.Supertypes)
	if err != nil {
		return nodetype.NodeType{}, err
	}

	t := nodetype.NodeType{
		Name:       name,
		Supertypes: supertypes,
		Mixin:      cfg.Mixin,
		Orderable:  cfg.Orderable,
	}

	for _, p := range cfg.Properties {
		pd := nodetype.PropertyDef{
			Residual:  p.Name == "",
			Multiple:  p.Multiple,
			Mandatory: p.Mandatory,
		}
		if !pd.Residual {
			if pd.Name, err = ns.ResolveName(p.Name); err != nil {
				return nodetype.NodeType{}, err
			}
		}
		if pd.Type, err = valueType(p.Type); err != nil {
			return nodetype.NodeType{}, err
		}
		t.Properties = append(t.Properties, pd)
	}

	for _, ch := range cfg.Children {
		cd := nodetype.ChildDef{
			Residual:         ch.Name == "",
			SameNameSiblings: ch.SameNameSiblings,
		}
		if !cd.Residual {
			if cd.Name, err = ns.ResolveName(ch.Name); err != nil {
				return nodetype.NodeType{}, err
			}
		}
		if cd.RequiredTypes, err = resolveAll(ns, ch.RequiredTypes); err != nil {
			return nodetype.NodeType{}, err
		}
		if ch.DefaultType != "" {
			if cd.DefaultType, err = ns.ResolveName(ch.DefaultType); err != nil {
				return nodetype.NodeType{}, err
			}
		}
		t.Children = append(t.Children, cd)
	}
	return t, nil
}

func resolveAll(ns *store.Namespaces, names []string) ([]store.Name, error) {
	var out []store.Name
	for _, n := range names {
		resolved, err := ns.ResolveName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func valueType(s string) (store.ValueType, error) {
	switch store.ValueType(s) {
	case "":
		return store.TypeUndefined, nil
	case store.TypeString, store.TypeLong, store.TypeBoolean, store.TypeDate,
		store.TypeName, store.TypeReference, store.TypeUndefined:
		return store.ValueType(s), nil
	default:
		return "", fmt.Errorf("unknown property type %q", s)
	}
}
