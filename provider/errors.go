package provider

import "errors"

// Sentinel errors for provider operations.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNotInitialized indicates a provider used before Initialize was called.
	ErrNotInitialized = errors.New("provider: not initialized")

	// ErrAlreadyInitialized indicates a second call to Initialize.
	ErrAlreadyInitialized = errors.New("provider: already initialized")

	// ErrProviderNotFound indicates that no provider is registered under the
	// requested name or node type.
	ErrProviderNotFound = errors.New("provider: not found")

	// ErrDuplicateProvider indicates a provider name or node type that is
	// already bound to a different provider.
	ErrDuplicateProvider = errors.New("provider: duplicate registration")

	// ErrRegistryFrozen indicates a registration attempted after the registry
	// was frozen at startup.
	ErrRegistryFrozen = errors.New("provider: registry frozen")

	// ErrInvalidFilter indicates a view or order entry that cannot be parsed.
	ErrInvalidFilter = errors.New("provider: invalid filter entry")
)
