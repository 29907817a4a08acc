package provider

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/uuidgen"
)

// StoreContext is the narrow view of the content store handed to providers
// at initialization. Providers reach canonical and virtual state, schema
// information and the provider registry only through it.
type StoreContext interface {
	// NodeTypeRegistry returns the registry used for definition lookups.
	NodeTypeRegistry() *nodetype.Registry

	// HierarchyManager walks canonical and virtual nodes alike.
	HierarchyManager() store.HierarchyManager

	// GenerateUUID returns the UUID of a new virtual node. The context
	// parameter and the canonical counterpart, when given, take part in the
	// derivation.
	GenerateUUID(pc *Context, canonical store.NodeID, seed uuidgen.Seed) uuid.UUID

	// CreateNewNode returns an empty snapshot of nodeType under parent.
	CreateNewNode(id store.NodeID, nodeType store.Name, parent store.NodeID) *store.NodeState

	// CreateNewProperty returns an empty property snapshot under parent.
	CreateNewProperty(name store.Name, parent store.NodeID) *store.PropertyState

	// ItemState resolves any item, populating virtual nodes on demand.
	ItemState(ctx context.Context, id store.ItemID) (store.ItemState, error)

	// CanonicalItemState reads persisted state only.
	CanonicalItemState(ctx context.Context, id store.ItemID) (store.ItemState, error)

	// ResolveName parses a prefixed name.
	ResolveName(name string) (store.Name, error)

	// ResolvePath parses a slash separated path of prefixed names.
	ResolvePath(path string) (store.Path, error)

	// RegisterProvider routes canonical nodes of nodeType to p.
	RegisterProvider(nodeType store.Name, p Provider) error

	// RegisterProviderProperty marks a property as provider configuration.
	// Such properties are not copied onto virtual nodes.
	RegisterProviderProperty(name store.Name)

	// IsProviderProperty reports whether name was registered with
	// RegisterProviderProperty.
	IsProviderProperty(name store.Name) bool

	// Registry returns the provider registry.
	Registry() *Registry

	// Logger returns the store logger.
	Logger() *slog.Logger

	// Tracer returns the tracer population spans are recorded with.
	Tracer() trace.Tracer

	// Meter returns the meter population metrics are recorded with.
	Meter() metric.Meter
}
