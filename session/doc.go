// Package session joins a canonical store.Backend with the virtual node
// providers.
//
// A Repository owns the namespace, node type and provider registries and is
// the provider.StoreContext every provider is initialized with. Sessions
// resolve canonical and virtual nodes for one caller:
//
//	repo := session.NewRepository(memstore.New(nodetype.Folder))
//	if err := repo.AddProvider(providers.NewMirror()); err != nil {
//		return err
//	}
//	if err := repo.Start(ctx); err != nil {
//		return err
//	}
//	s, err := repo.Login(nil)
//	node, err := s.NodeByPath(ctx, "/content/mirror")
package session
