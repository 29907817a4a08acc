// Package provider implements the virtual node provider framework: the
// store context boundary, provider contexts, virtual node identifiers and
// the provider base with its registry.
//
// A provider computes nodes that are not persisted. Identifiers of such
// nodes are immutable and carry everything needed to compute the node on
// demand:
//
//	id, err := provider.NewNodeID(p, parentID, nil, name)
//	state, err := id.Populate(ctx, nil)
//	if state == nil && err == nil {
//		// the node cannot be computed from the current store state
//	}
//
// Population failures originating in the store are logged and reported as an
// absent node. store.ErrInvalidItemState and programming errors such as
// ErrNotInitialized are always returned.
package provider
