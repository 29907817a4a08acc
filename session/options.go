package session

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/uuidgen"
)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger handed to providers.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer population spans are recorded with.
// If not set, a noop tracer is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Repository) {
		r.tracer = tracer
	}
}

// WithMeter sets the meter population metrics are recorded with.
// If not set, a noop meter is used.
func WithMeter(meter metric.Meter) Option {
	return func(r *Repository) {
		r.meter = meter
	}
}

// WithGenerator sets the UUID generator for virtual nodes.
// If not set, a deterministic generator in the default namespace is used.
func WithGenerator(gen uuidgen.Generator) Option {
	return func(r *Repository) {
		if gen != nil {
			r.generator = gen
		}
	}
}

// WithNamespaces sets the namespace registry used for name resolution.
func WithNamespaces(ns *store.Namespaces) Option {
	return func(r *Repository) {
		if ns != nil {
			r.namespaces = ns
		}
	}
}

// WithNodeTypes sets the node type registry.
func WithNodeTypes(reg *nodetype.Registry) Option {
	return func(r *Repository) {
		if reg != nil {
			r.nodeTypes = reg
		}
	}
}
