package providers

import (
	"context"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// MirrorName is the registered name of the mirror provider.
const MirrorName = "mirror"

// Mirror exposes the subtree below a canonical node's nav:docbase as virtual
// children of that node. Mirrored nodes carry the type and properties of
// their upstream node and mirror its children in turn.
type Mirror struct {
	*provider.Base
	names names
}

// NewMirror creates the mirror provider.
func NewMirror() *Mirror {
	m := &Mirror{}
	m.Base = provider.NewBase(m, MirrorName)
	return m
}

// Setup implements provider.Setup.
func (m *Mirror) Setup() error {
	n, err := resolveNames(m.ResolveName)
	if err != nil {
		return err
	}
	m.names = n

	if err := registerNodeTypes(m.Store().NodeTypeRegistry(), n); err != nil {
		return err
	}
	m.Store().RegisterProviderProperty(n.docbase)
	return m.Register(TypeMirror, "")
}

// NodeType implements provider.Typer.
func (m *Mirror) NodeType(ctx context.Context, id store.NodeID) (store.Name, []store.Name, error) {
	return upstreamType(ctx, m.Store(), id)
}

// Fill implements provider.Filler.
func (m *Mirror) Fill(ctx context.Context, pc *provider.Context, state *store.NodeState) (*store.NodeState, error) {
	sc := m.Store()

	if _, virtual := provider.UnwrapID(state.ID).(provider.VirtualID); !virtual {
		base := docbase(ctx, m.Base, state.ID)
		if base == nil {
			return state, nil
		}
		upstream, err := canonicalNode(ctx, sc, base)
		if err != nil {
			return nil, err
		}
		return state, m.addChildren(state, upstream, pc)
	}

	upstream, err := canonicalNode(ctx, sc, store.CanonicalOf(state.ID))
	if err != nil {
		return nil, err
	}
	mirrorProperties(sc, state, upstream)
	return state, m.addChildren(state, upstream, nil)
}

func (m *Mirror) addChildren(state, upstream *store.NodeState, pc *provider.Context) error {
	for _, child := range upstream.Children() {
		id, err := provider.NewMirrorID(m, state.ID, pc, child.Name, child.ID)
		if err != nil {
			return err
		}
		state.AddChild(child.Name, id)
	}
	return nil
}
