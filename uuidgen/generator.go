package uuidgen

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultNamespace is the name-based UUID namespace used when a
// DeterministicGenerator is created without one.
var DefaultNamespace = uuid.MustParse("6f1c2f3e-8a4b-5d2e-9c1a-7b0e4d3f2a10")

// Seed names the inputs a virtual node UUID is derived from. Empty fields
// take part in the derivation like any other value.
type Seed struct {
	// Provider is the name of the owning provider.
	Provider string

	// Parent is the textual UUID of the parent node.
	Parent string

	// Parameter is the provider context parameter, if any.
	Parameter string

	// Name is the expanded name of the virtual node.
	Name string

	// Canonical is the textual UUID of the canonical counterpart, if any.
	Canonical string
}

// Generator creates UUIDs for virtual nodes.
type Generator interface {
	// Generate returns the UUID for seed. Deterministic implementations
	// return the same UUID for equal seeds.
	Generate(seed Seed) uuid.UUID
}

// DeterministicGenerator derives name-based (version 5) UUIDs from the
// canonical form of a seed.
//
// UUID Generation Algorithm:
//  1. Build the canonical string: field=quoted(value) pairs sorted by field, joined by "|"
//  2. SHA-1 the canonical string within the generator namespace (uuid.NewSHA1)
//
// This ensures:
//   - Same seed always produces the same UUID, across sessions and restarts
//   - Different seeds produce different UUIDs (collision-resistant)
//   - Two traversal paths reaching the same logical virtual node agree on its identity
type DeterministicGenerator struct {
	namespace uuid.UUID
}

// NewDeterministic creates a DeterministicGenerator. A nil namespace selects
// DefaultNamespace.
//
// Example:
//
//	gen := uuidgen.NewDeterministic(uuid.Nil)
//	id := gen.Generate(uuidgen.Seed{Provider: "view", Parent: parent.String(), Name: "doc"})
func NewDeterministic(namespace uuid.UUID) *DeterministicGenerator {
	if namespace == uuid.Nil {
		namespace = DefaultNamespace
	}
	return &DeterministicGenerator{namespace: namespace}
}

// Namespace returns the namespace UUIDs are derived in.
func (g *DeterministicGenerator) Namespace() uuid.UUID {
	return g.namespace
}

// Generate derives the UUID for seed.
func (g *DeterministicGenerator) Generate(seed Seed) uuid.UUID {
	return uuid.NewSHA1(g.namespace, []byte(canonicalString(seed)))
}

// canonicalString renders seed with fields sorted by name. Values are quoted
// so separators inside values cannot make two seeds collide.
func canonicalString(seed Seed) string {
	fields := map[string]string{
		"canonical": seed.Canonical,
		"name":      seed.Name,
		"parameter": seed.Parameter,
		"parent":    seed.Parent,
		"provider":  seed.Provider,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strconv.Quote(fields[k]))
	}
	return strings.Join(pairs, "|")
}

// RandomGenerator returns a fresh random (version 4) UUID on every call.
// Identifiers built with it are never shared between traversal paths.
type RandomGenerator struct{}

// NewRandom creates a RandomGenerator.
func NewRandom() RandomGenerator {
	return RandomGenerator{}
}

// Generate ignores seed and returns a random UUID.
func (RandomGenerator) Generate(Seed) uuid.UUID {
	return uuid.New()
}
