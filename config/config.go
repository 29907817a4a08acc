// Package config provides loading and parsing of dataprovider.yaml
// repository descriptions. A description names the canonical backend, the
// namespaces and node types, the UUID strategy for virtual nodes and the
// providers to start.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in directories.
const FileName = "dataprovider.yaml"

// Backend types.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// UUID strategies.
const (
	UUIDDeterministic = "deterministic"
	UUIDRandom        = "random"
)

// Provider kinds.
const (
	KindMirror          = "mirror"
	KindView            = "view"
	KindFacetNavigation = "facetnavigation"
	KindResultSet       = "resultset"
)

// ErrInvalidConfig indicates a description that fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents a dataprovider.yaml file.
type Config struct {
	// Namespaces maps additional prefixes to namespace URIs. The jcr, nt,
	// mix and nav prefixes are always available.
	Namespaces map[string]string `yaml:"namespaces,omitempty"`

	// RootType is the node type of the root node of a new store.
	// Default: nt:folder
	RootType string `yaml:"root_type,omitempty"`

	Backend   *BackendConfig   `yaml:"backend,omitempty"`
	UUID      *UUIDConfig      `yaml:"uuid,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
	NodeTypes []NodeTypeConfig `yaml:"node_types,omitempty"`
	Providers []ProviderConfig `yaml:"providers,omitempty"`
}

// BackendConfig selects the canonical store.
type BackendConfig struct {
	// Type is "memory" or "redis". Default: memory
	Type string `yaml:"type,omitempty"`

	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	URL    string `yaml:"url,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// Timeouts use Go duration strings (e.g., "5s").
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
	ReadTimeout    string `yaml:"read_timeout,omitempty"`
	WriteTimeout   string `yaml:"write_timeout,omitempty"`
}

// UUIDConfig selects how virtual node UUIDs are generated.
type UUIDConfig struct {
	// Strategy is "deterministic" or "random". Default: deterministic
	Strategy string `yaml:"strategy,omitempty"`

	// Namespace is the UUID namespace of the deterministic strategy.
	Namespace string `yaml:"namespace,omitempty"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level,omitempty"`

	// Format is text or json. Default: text
	Format string `yaml:"format,omitempty"`
}

// NodeTypeConfig declares a node type with prefixed names.
type NodeTypeConfig struct {
	Name       string           `yaml:"name"`
	Supertypes []string         `yaml:"supertypes,omitempty"`
	Mixin      bool             `yaml:"mixin,omitempty"`
	Orderable  bool             `yaml:"orderable,omitempty"`
	Properties []PropertyConfig `yaml:"properties,omitempty"`
	Children   []ChildConfig    `yaml:"children,omitempty"`
}

// PropertyConfig declares a property. An empty name declares a residual
// definition.
type PropertyConfig struct {
	Name      string `yaml:"name,omitempty"`
	Type      string `yaml:"type,omitempty"`
	Multiple  bool   `yaml:"multiple,omitempty"`
	Mandatory bool   `yaml:"mandatory,omitempty"`
}

// ChildConfig declares a child node. An empty name declares a residual
// definition.
type ChildConfig struct {
	Name             string   `yaml:"name,omitempty"`
	RequiredTypes    []string `yaml:"required_types,omitempty"`
	DefaultType      string   `yaml:"default_type,omitempty"`
	SameNameSiblings bool     `yaml:"same_name_siblings,omitempty"`
}

// ProviderConfig enables a provider.
type ProviderConfig struct {
	// Kind is mirror, view, facetnavigation or resultset.
	Kind string `yaml:"kind"`
}

// GetRootType returns the root type or the default value.
func (c *Config) GetRootType() string {
	if c == nil || c.RootType == "" {
		return "nt:folder"
	}
	return c.RootType
}

// GetType returns the backend type or the default value.
func (b *BackendConfig) GetType() string {
	if b == nil || b.Type == "" {
		return BackendMemory
	}
	return strings.ToLower(b.Type)
}

// GetURL returns the Redis URL or the default value.
func (r *RedisConfig) GetURL() string {
	if r == nil || r.URL == "" {
		return "redis://localhost:6379"
	}
	return r.URL
}

// GetPrefix returns the Redis key prefix or the default value.
func (r *RedisConfig) GetPrefix() string {
	if r == nil || r.Prefix == "" {
		return "dataprovider"
	}
	return r.Prefix
}

// GetConnectTimeout parses the connect timeout. Returns the default value if
// not set or invalid.
func (r *RedisConfig) GetConnectTimeout() time.Duration {
	return duration(r, func(r *RedisConfig) string { return r.ConnectTimeout }, 5*time.Second)
}

// GetReadTimeout parses the read timeout. Returns the default value if not
// set or invalid.
func (r *RedisConfig) GetReadTimeout() time.Duration {
	return duration(r, func(r *RedisConfig) string { return r.ReadTimeout }, 3*time.Second)
}

// GetWriteTimeout parses the write timeout. Returns the default value if not
// set or invalid.
func (r *RedisConfig) GetWriteTimeout() time.Duration {
	return duration(r, func(r *RedisConfig) string { return r.WriteTimeout }, 3*time.Second)
}

func duration(r *RedisConfig, field func(*RedisConfig) string, def time.Duration) time.Duration {
	if r == nil || field(r) == "" {
		return def
	}
	d, err := time.ParseDuration(field(r))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetStrategy returns the UUID strategy or the default value.
func (u *UUIDConfig) GetStrategy() string {
	if u == nil || u.Strategy == "" {
		return UUIDDeterministic
	}
	return strings.ToLower(u.Strategy)
}

// GetNamespace parses the UUID namespace. Returns uuid.Nil if not set or
// invalid.
func (u *UUIDConfig) GetNamespace() uuid.UUID {
	if u == nil || u.Namespace == "" {
		return uuid.Nil
	}
	ns, err := uuid.Parse(u.Namespace)
	if err != nil {
		return uuid.Nil
	}
	return ns
}

// GetLevel returns the log level or the default value.
func (l *LoggingConfig) GetLevel() string {
	if l == nil || l.Level == "" {
		return "info"
	}
	return strings.ToLower(l.Level)
}

// GetFormat returns the log format or the default value.
func (l *LoggingConfig) GetFormat() string {
	if l == nil || l.Format == "" {
		return "text"
	}
	return strings.ToLower(l.Format)
}

// Validate checks the description for values the defaults cannot repair.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend.GetType() {
	case BackendMemory:
	case BackendRedis:
		if c.Backend.Redis == nil {
			errs = append(errs, fmt.Errorf("backend redis: missing redis section"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend: unknown type %q", c.Backend.Type))
	}

	switch c.UUID.GetStrategy() {
	case UUIDDeterministic:
		if c.UUID != nil && c.UUID.Namespace != "" {
			if _, err := uuid.Parse(c.UUID.Namespace); err != nil {
				errs = append(errs, fmt.Errorf("uuid namespace %q: %w", c.UUID.Namespace, err))
			}
		}
	case UUIDRandom:
	default:
		errs = append(errs, fmt.Errorf("uuid: unknown strategy %q", c.UUID.Strategy))
	}

	switch c.Logging.GetLevel() {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.GetFormat() {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}

	for prefix, uri := range c.Namespaces {
		if prefix == "" || uri == "" {
			errs = append(errs, fmt.Errorf("namespace %q: empty prefix or uri", prefix))
		}
	}

	for i, nt := range c.NodeTypes {
		if nt.Name == "" {
			errs = append(errs, fmt.Errorf("node_types[%d]: missing name", i))
		}
	}

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		switch p.Kind {
		case KindMirror, KindView, KindFacetNavigation, KindResultSet:
		default:
			errs = append(errs, fmt.Errorf("providers[%d]: unknown kind %q", i, p.Kind))
			continue
		}
		if seen[p.Kind] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate kind %q", i, p.Kind))
		}
		seen[p.Kind] = true
	}
	if seen[KindFacetNavigation] && !seen[KindResultSet] {
		errs = append(errs, fmt.Errorf("providers: %s requires %s", KindFacetNavigation, KindResultSet))
	}
	if seen[KindResultSet] && !seen[KindView] {
		errs = append(errs, fmt.Errorf("providers: %s requires %s", KindResultSet, KindView))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Parse parses and validates a description.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads and validates a dataprovider.yaml file from the given path.
// If the path is a directory, it looks for dataprovider.yaml or
// dataprovider.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range []string{FileName, "dataprovider.yml"} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no %s or dataprovider.yml found in %s", FileName, path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}
