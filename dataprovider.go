package dataprovider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zero-day-ai/dataprovider/config"
	"github.com/zero-day-ai/dataprovider/health"
	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/providers"
	"github.com/zero-day-ai/dataprovider/session"
	"github.com/zero-day-ai/dataprovider/store"
	"github.com/zero-day-ai/dataprovider/store/memstore"
	"github.com/zero-day-ai/dataprovider/store/redisstore"
	"github.com/zero-day-ai/dataprovider/uuidgen"
)

// DataProvider is a started repository together with the backend it owns.
type DataProvider struct {
	repo    *session.Repository
	backend store.Backend
	closer  io.Closer
	logger  *slog.Logger
}

// OpenFile loads the configuration at path (a file or a directory holding
// dataprovider.yaml) and opens it.
func OpenFile(ctx context.Context, path string, opts ...Option) (*DataProvider, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, NewConfigurationError("OpenFile", fmt.Errorf("%w: %w", ErrInvalidConfig, err)).
			WithContext(map[string]any{"path": path})
	}
	return Open(ctx, cfg, opts...)
}

// Open builds the backend, the registries and the providers described by
// cfg and starts the repository. A nil cfg opens an in-memory repository
// without providers.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*DataProvider, error) {
	const op = "Open"

	if cfg == nil {
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = newLogger(cfg.Logging)
	}

	ns, err := cfg.BuildNamespaces()
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}
	types := nodetype.NewRegistry()
	if err := providers.RegisterNodeTypes(ns, types); err != nil {
		return nil, NewInternalError(op, err)
	}
	if err := cfg.RegisterNodeTypes(ns, types); err != nil {
		return nil, NewConfigurationError(op, err)
	}
	rootType, err := ns.ResolveName(cfg.GetRootType())
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}
	if !types.IsRegistered(rootType) {
		return nil, NewConfigurationError(op, fmt.Errorf("root type: %w: %s", nodetype.ErrNodeTypeNotRegistered, cfg.GetRootType()))
	}

	dp := &DataProvider{logger: o.logger}
	if o.backend != nil {
		dp.backend = o.backend
	} else if err := dp.openBackend(ctx, cfg.Backend, rootType); err != nil {
		return nil, err
	}

	repo := session.NewRepository(dp.backend,
		session.WithLogger(o.logger),
		session.WithTracer(o.tracer),
		session.WithMeter(o.meter),
		session.WithNamespaces(ns),
		session.WithNodeTypes(types),
		session.WithGenerator(newGenerator(cfg.UUID)),
	)

	configured := make([]provider.Provider, 0, len(cfg.Providers)+len(o.providers))
	for _, pc := range cfg.Providers {
		configured = append(configured, newProvider(pc.Kind))
	}
	configured = append(configured, o.providers...)

	for _, p := range configured {
		if err := repo.AddProvider(p); err != nil {
			_ = dp.Close()
			return nil, NewStartupError(op, err).WithContext(map[string]any{"provider": p.Name()})
		}
	}
	if err := repo.Start(ctx); err != nil {
		_ = dp.Close()
		return nil, NewStartupError(op, fmt.Errorf("%w: %w", ErrStartFailed, err))
	}

	dp.repo = repo
	return dp, nil
}

func (dp *DataProvider) openBackend(ctx context.Context, cfg *config.BackendConfig, rootType store.Name) error {
	switch cfg.GetType() {
	case config.BackendRedis:
		rc := cfg.Redis
		rs, err := redisstore.New(redisstore.Options{
			URL:            rc.GetURL(),
			Prefix:         rc.GetPrefix(),
			ConnectTimeout: rc.GetConnectTimeout(),
			ReadTimeout:    rc.GetReadTimeout(),
			WriteTimeout:   rc.GetWriteTimeout(),
		})
		if err != nil {
			return NewBackendError("Open", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)).
				WithContext(map[string]any{"backend": config.BackendRedis})
		}
		if _, err := rs.Init(ctx, rootType); err != nil {
			CloseWithLog(rs, dp.logger, "redis backend")
			return NewBackendError("Open", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)).
				WithContext(map[string]any{"backend": config.BackendRedis})
		}
		dp.backend = rs
		dp.closer = rs
	default:
		dp.backend = memstore.New(rootType)
	}
	return nil
}

func newProvider(kind string) provider.Provider {
	switch kind {
	case config.KindMirror:
		return providers.NewMirror()
	case config.KindView:
		return providers.NewView()
	case config.KindFacetNavigation:
		return providers.NewFacetNavigation()
	default:
		return providers.NewResultSet()
	}
}

func newGenerator(cfg *config.UUIDConfig) uuidgen.Generator {
	if cfg.GetStrategy() == config.UUIDRandom {
		return uuidgen.NewRandom()
	}
	return uuidgen.NewDeterministic(cfg.GetNamespace())
}

func newLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.GetLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.GetFormat() == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

// Repository returns the started repository.
func (dp *DataProvider) Repository() *session.Repository { return dp.repo }

// Backend returns the canonical backend.
func (dp *DataProvider) Backend() store.Backend { return dp.backend }

// Login opens a session carrying pc.
func (dp *DataProvider) Login(pc *provider.Context) (*session.Session, error) {
	return dp.repo.Login(pc)
}

// Health checks the backend and the providers of the repository.
func (dp *DataProvider) Health(ctx context.Context) health.Status {
	return health.Combine(
		health.BackendCheck(ctx, dp.backend),
		health.ProvidersCheck(dp.repo.Registry().Providers()),
	)
}

// Close releases the backend when it was opened from the configuration.
func (dp *DataProvider) Close() error {
	if dp.closer == nil {
		return nil
	}
	err := dp.closer.Close()
	dp.closer = nil
	return err
}
