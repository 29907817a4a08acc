package provider

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zero-day-ai/dataprovider/store"
)

// Wildcard matches any value of a facet.
const Wildcard = "*"

// Constraint is a single (facet, value) pair of a Filter.
type Constraint struct {
	Facet string
	Value string
}

// IsWildcard reports whether the constraint accepts any value.
func (c Constraint) IsWildcard() bool {
	return c.Value == "" || c.Value == Wildcard
}

func (c Constraint) String() string {
	return c.Facet + "=" + c.Value
}

// Filter is an insertion-ordered list of constraints, at most one per facet.
// Methods never modify the receiver.
type Filter []Constraint

// NewFilter builds a filter from alternating facet and value arguments.
func NewFilter(pairs ...string) Filter {
	var f Filter
	for i := 0; i+1 < len(pairs); i += 2 {
		f = f.With(pairs[i], pairs[i+1])
	}
	return f
}

// ParseFilter parses "facet=value" entries. A bare "facet" selects the
// wildcard.
func ParseFilter(entries []string) (Filter, error) {
	var f Filter
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		facet, value, found := strings.Cut(e, "=")
		facet = strings.TrimSpace(facet)
		if facet == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, e)
		}
		if !found {
			value = Wildcard
		}
		f = f.With(facet, strings.TrimSpace(value))
	}
	return f, nil
}

// Clone returns a copy of f.
func (f Filter) Clone() Filter {
	if f == nil {
		return nil
	}
	return slices.Clone(f)
}

// Get returns the value constrained for facet.
func (f Filter) Get(facet string) (string, bool) {
	for _, c := range f {
		if c.Facet == facet {
			return c.Value, true
		}
	}
	return "", false
}

// With returns a copy of f constraining facet to value. An existing
// constraint on facet keeps its position.
func (f Filter) With(facet, value string) Filter {
	out := f.Clone()
	for i, c := range out {
		if c.Facet == facet {
			out[i].Value = value
			return out
		}
	}
	return append(out, Constraint{Facet: facet, Value: value})
}

// Facets returns the constrained facets in order.
func (f Filter) Facets() []string {
	out := make([]string, len(f))
	for i, c := range f {
		out[i] = c.Facet
	}
	return out
}

// Entries renders f as "facet=value" strings.
func (f Filter) Entries() []string {
	out := make([]string, len(f))
	for i, c := range f {
		out[i] = c.String()
	}
	return out
}

func (f Filter) String() string {
	return "[" + strings.Join(f.Entries(), ", ") + "]"
}

// Matches reports whether values satisfies every constraint: the facet must
// carry the value, or any value for wildcard constraints.
func (f Filter) Matches(values func(facet string) []string) bool {
	for _, c := range f {
		vs := values(c.Facet)
		if len(vs) == 0 {
			return false
		}
		if !c.IsWildcard() && !slices.Contains(vs, c.Value) {
			return false
		}
	}
	return true
}

// Filterable is implemented by identifiers that carry a view and an order.
type Filterable interface {
	store.NodeID

	// View returns a copy of the facet constraints children must satisfy.
	View() Filter

	// Order returns a copy of the facet ordering applied to children.
	Order() Filter

	// IsSingledView reports whether only one variant per handle is shown.
	IsSingledView() bool
}

// FilterableOf returns id, or the identifier it parameterizes, as a
// Filterable.
func FilterableOf(id store.NodeID) (Filterable, bool) {
	if id == nil {
		return nil, false
	}
	f, ok := UnwrapID(id).(Filterable)
	return f, ok
}
