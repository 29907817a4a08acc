package dataprovider

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// Option configures Open.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	backend   store.Backend
	providers []provider.Provider
}

// WithLogger sets a custom logger.
// If not provided, a logger is built from the logging section of the
// configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for population spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for population metrics.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithBackend uses backend instead of the one described by the
// configuration. The caller keeps ownership of backend.
func WithBackend(backend store.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithProviders adds providers besides the configured ones.
func WithProviders(providers ...provider.Provider) Option {
	return func(o *options) {
		o.providers = append(o.providers, providers...)
	}
}
