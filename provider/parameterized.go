package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zero-day-ai/dataprovider/store"
)

// ParameterizedID pairs an identifier with a context parameter. It shares
// the original's UUID, so storage-layer lookups are unaffected; population
// runs with a Context carrying the parameter.
type ParameterizedID struct {
	original  store.NodeID
	parameter string
	context   *Context
}

// Wrap pairs id with parameter.
func Wrap(id store.NodeID, parameter string) *ParameterizedID {
	pc := ContextOf(id)
	if pc.Parameter() != parameter {
		pc = NewContext(parameter)
	}
	return &ParameterizedID{original: id, parameter: parameter, context: pc}
}

// Unwrap returns the original identifier.
func (p *ParameterizedID) Unwrap() store.NodeID { return p.original }

// Parameter returns the parameter.
func (p *ParameterizedID) Parameter() string { return p.parameter }

// Context returns a context carrying the parameter.
func (p *ParameterizedID) Context() *Context { return p.context }

// UUID returns the original's UUID.
func (p *ParameterizedID) UUID() uuid.UUID { return p.original.UUID() }

// IsNode always returns true.
func (p *ParameterizedID) IsNode() bool { return true }

func (p *ParameterizedID) String() string {
	return p.original.String() + "?" + p.parameter
}

// Upstream forwards to the original when it mirrors a canonical node.
func (p *ParameterizedID) Upstream() store.NodeID {
	if u, ok := p.original.(store.Upstreamer); ok {
		return u.Upstream()
	}
	return p.original
}

// Provider returns the original's provider, nil for canonical originals.
func (p *ParameterizedID) Provider() Provider {
	if v, ok := p.original.(VirtualID); ok {
		return v.Provider()
	}
	return nil
}

// Populate populates the original. The wrapper's context is used unless pc
// carries a parameter of its own.
func (p *ParameterizedID) Populate(ctx context.Context, pc *Context) (*store.NodeState, error) {
	v, ok := p.original.(VirtualID)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not virtual", store.ErrNoSuchItem, p.original)
	}
	return v.Populate(ctx, p.effective(pc))
}

// Repopulate refills state through the original.
func (p *ParameterizedID) Repopulate(ctx context.Context, pc *Context, state *store.NodeState) (*store.NodeState, error) {
	v, ok := p.original.(VirtualID)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not virtual", store.ErrNoSuchItem, p.original)
	}
	return v.Repopulate(ctx, p.effective(pc), state)
}

func (p *ParameterizedID) effective(pc *Context) *Context {
	if pc.HasParameter() {
		return pc
	}
	return p.context
}

// UnwrapID strips any parameterization from id.
func UnwrapID(id store.NodeID) store.NodeID {
	for {
		p, ok := id.(*ParameterizedID)
		if !ok {
			return id
		}
		id = p.original
	}
}
