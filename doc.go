// Package dataprovider materializes computed, non-persisted nodes on top of
// a hierarchical content store.
//
// Virtual nodes are produced by providers (package provider) and exposed
// through sessions (package session) next to the canonical nodes of a
// backend (packages store/memstore and store/redisstore). This package wires
// the pieces together from a dataprovider.yaml description:
//
//	dp, err := dataprovider.OpenFile(ctx, "dataprovider.yaml")
//	if err != nil {
//		return err
//	}
//	defer dp.Close()
//
//	s, err := dp.Login(provider.NewContext(`"red" in facets.color`))
//	results, err := s.NodeByPath(ctx, "/content/navigation/nav:result")
//
// # Configuration
//
//	backend:
//	  type: redis
//	  redis:
//	    url: redis://localhost:6379/0
//	uuid:
//	  strategy: deterministic
//	providers:
//	  - kind: view
//	  - kind: resultset
//	  - kind: facetnavigation
//
// # Health
//
// Health reports whether the backend answers and every provider is
// initialized, see package health.
//
// # Errors
//
// Setup failures are reported as *Error with a kind. Failures while
// resolving nodes are store errors (store.Error); a virtual node that cannot
// be computed is reported as store.ErrNoSuchItem, and a snapshot that must
// be re-resolved as store.ErrInvalidItemState.
package dataprovider
