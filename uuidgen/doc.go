// Package uuidgen provides UUID generation strategies for virtual node
// identifiers.
//
// A virtual node has no stored identity. Its UUID is computed when the
// identifier is constructed, from the owning provider, the parent, the
// provider context parameter, the node name and, for mirrors, the canonical
// counterpart. With DeterministicGenerator equal inputs yield equal UUIDs,
// which is what lets a session keep a single snapshot for a virtual node
// reached along two different paths. RandomGenerator gives up that property
// and exists for stores that never revisit virtual nodes.
//
// # Usage
//
//	gen := uuidgen.NewDeterministic(uuid.Nil)
//	a := gen.Generate(uuidgen.Seed{Provider: "resultset", Parent: p, Name: "nav:result"})
//	b := gen.Generate(uuidgen.Seed{Provider: "resultset", Parent: p, Name: "nav:result"})
//	// a == b
package uuidgen
