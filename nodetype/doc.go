// Package nodetype provides the node type registry consulted when virtual
// nodes are given a definition.
//
// A Registry maps qualified type names to NodeType descriptions: supertypes,
// property definitions and child-node definitions, each either named or
// residual. Lookups walk the primary type, its mixins and all supertypes.
//
// Computed nodes are often synthesized under parents whose schema does not
// anticipate them. Callers that need a definition in that situation retry
// against Unstructured, which accepts any child and any property.
//
// Example:
//
//	reg := nodetype.NewRegistry()
//	def, err := reg.ChildDefinition(nodetype.Unstructured, nil, name, nodetype.Unstructured)
package nodetype
