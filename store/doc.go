// Package store defines the primitives shared between the canonical content
// store and the virtual node providers layered on top of it: qualified
// names and paths, node identifiers, node and property snapshots, the
// Backend contract and the generic store error.
//
// Nothing in this package knows about providers. Virtual identifiers satisfy
// NodeID like canonical ones do, and the HierarchyManager walks both kinds
// through an ItemStateReader.
package store
