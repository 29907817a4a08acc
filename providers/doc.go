// Package providers contains the concrete virtual node providers:
//
//   - Mirror exposes the subtree below nav:docbase under a nav:mirror node.
//   - View mirrors a subtree through a facet view and order (nav:viewfolder).
//   - FacetNavigation builds a facet drill-down below nav:facetnavigation
//     nodes.
//   - ResultSet lists the documents selected by a facet navigation level.
//
// All four register their node types with the store's node type registry
// during Setup. FacetNavigation needs ResultSet, and ResultSet needs View,
// to be added to the same repository.
package providers
