package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zero-day-ai/dataprovider/store"
)

// Registry maps provider names and node types to providers.
//
// Providers are registered while the store starts; Freeze turns the registry
// read-only afterwards. The registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	frozen   bool
	byName   map[string]Provider
	external map[store.Name]Provider
	virtual  map[store.Name]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]Provider),
		external: make(map[store.Name]Provider),
		virtual:  make(map[store.Name]Provider),
	}
}

// Add registers p under its name.
func (r *Registry) Add(p Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: provider without name", ErrDuplicateProvider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: add %s", ErrRegistryFrozen, p.Name())
	}
	if existing, ok := r.byName[p.Name()]; ok && existing != p {
		return fmt.Errorf("%w: name %s", ErrDuplicateProvider, p.Name())
	}
	r.byName[p.Name()] = p
	return nil
}

// BindExternal routes canonical nodes of nodeType to p.
func (r *Registry) BindExternal(nodeType store.Name, p Provider) error {
	return r.bind(r.external, "external", nodeType, p)
}

// BindVirtual records p as the producer of nodes of nodeType.
func (r *Registry) BindVirtual(nodeType store.Name, p Provider) error {
	return r.bind(r.virtual, "virtual", nodeType, p)
}

func (r *Registry) bind(m map[store.Name]Provider, kind string, nodeType store.Name, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: bind %s type %s", ErrRegistryFrozen, kind, nodeType)
	}
	if existing, ok := m[nodeType]; ok && existing != p {
		return fmt.Errorf("%w: %s type %s bound to %s", ErrDuplicateProvider, kind, nodeType, existing.Name())
	}
	m[nodeType] = p
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// LookupType returns the provider producing nodeType, or the provider
// augmenting it when no producer is bound.
func (r *Registry) LookupType(nodeType store.Name) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.virtual[nodeType]; ok {
		return p, nil
	}
	if p, ok := r.external[nodeType]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: type %s", ErrProviderNotFound, nodeType)
}

// External returns the provider augmenting canonical nodes of nodeType.
func (r *Registry) External(nodeType store.Name) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.external[nodeType]
	return p, ok
}

// Providers returns all registered providers sorted by name.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
