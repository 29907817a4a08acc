package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
namespaces:
  shop: http://example.com/shop/1.0
root_type: nt:unstructured
backend:
  type: redis
  redis:
    url: redis://cache:6379/2
    prefix: shop
    read_timeout: 1s
uuid:
  strategy: deterministic
  namespace: 6ba7b811-9dad-11d1-80b4-00c04fd430c8
logging:
  level: DEBUG
  format: json
node_types:
  - name: shop:product
    supertypes: [nt:unstructured]
    properties:
      - name: shop:sku
        type: string
        mandatory: true
providers:
  - kind: mirror
  - kind: view
  - kind: resultset
  - kind: facetnavigation
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/shop/1.0", cfg.Namespaces["shop"])
	assert.Equal(t, "nt:unstructured", cfg.GetRootType())
	assert.Equal(t, BackendRedis, cfg.Backend.GetType())
	assert.Equal(t, "redis://cache:6379/2", cfg.Backend.Redis.GetURL())
	assert.Equal(t, "shop", cfg.Backend.Redis.GetPrefix())
	assert.Equal(t, time.Second, cfg.Backend.Redis.GetReadTimeout())
	assert.Equal(t, 3*time.Second, cfg.Backend.Redis.GetWriteTimeout())
	assert.Equal(t, uuid.NameSpaceURL, cfg.UUID.GetNamespace())
	assert.Equal(t, "debug", cfg.Logging.GetLevel())
	assert.Equal(t, "json", cfg.Logging.GetFormat())
	require.Len(t, cfg.NodeTypes, 1)
	assert.Equal(t, "shop:product", cfg.NodeTypes[0].Name)
	require.Len(t, cfg.Providers, 4)
	assert.Equal(t, KindFacetNavigation, cfg.Providers[3].Kind)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("providers: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestDefaults(t *testing.T) {
	var cfg *Config
	assert.Equal(t, "nt:folder", cfg.GetRootType())

	empty := &Config{}
	assert.Equal(t, BackendMemory, empty.Backend.GetType())
	assert.Nil(t, empty.Backend)
	assert.Equal(t, "redis://localhost:6379", (*RedisConfig)(nil).GetURL())
	assert.Equal(t, "dataprovider", (*RedisConfig)(nil).GetPrefix())
	assert.Equal(t, 5*time.Second, (*RedisConfig)(nil).GetConnectTimeout())
	assert.Equal(t, UUIDDeterministic, empty.UUID.GetStrategy())
	assert.Equal(t, uuid.Nil, empty.UUID.GetNamespace())
	assert.Equal(t, "info", empty.Logging.GetLevel())
	assert.Equal(t, "text", empty.Logging.GetFormat())
	assert.NoError(t, empty.Validate())

	bad := &RedisConfig{ConnectTimeout: "soon", ReadTimeout: "-1s"}
	assert.Equal(t, 5*time.Second, bad.GetConnectTimeout())
	assert.Equal(t, 3*time.Second, bad.GetReadTimeout())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "unknown backend",
			config:  Config{Backend: &BackendConfig{Type: "etcd"}},
			wantErr: `unknown type "etcd"`,
		},
		{
			name:    "redis without section",
			config:  Config{Backend: &BackendConfig{Type: "redis"}},
			wantErr: "missing redis section",
		},
		{
			name:    "unknown strategy",
			config:  Config{UUID: &UUIDConfig{Strategy: "sequential"}},
			wantErr: `unknown strategy "sequential"`,
		},
		{
			name:    "malformed uuid namespace",
			config:  Config{UUID: &UUIDConfig{Namespace: "not-a-uuid"}},
			wantErr: "uuid namespace",
		},
		{
			name:    "unknown level",
			config:  Config{Logging: &LoggingConfig{Level: "trace"}},
			wantErr: `unknown level "trace"`,
		},
		{
			name:    "unknown format",
			config:  Config{Logging: &LoggingConfig{Format: "xml"}},
			wantErr: `unknown format "xml"`,
		},
		{
			name:    "empty namespace uri",
			config:  Config{Namespaces: map[string]string{"shop": ""}},
			wantErr: "empty prefix or uri",
		},
		{
			name:    "unnamed node type",
			config:  Config{NodeTypes: []NodeTypeConfig{{}}},
			wantErr: "node_types[0]: missing name",
		},
		{
			name:    "unknown provider",
			config:  Config{Providers: []ProviderConfig{{Kind: "search"}}},
			wantErr: `unknown kind "search"`,
		},
		{
			name:    "duplicate provider",
			config:  Config{Providers: []ProviderConfig{{Kind: KindMirror}, {Kind: KindMirror}}},
			wantErr: `duplicate kind "mirror"`,
		},
		{
			name:    "facet navigation without result set",
			config:  Config{Providers: []ProviderConfig{{Kind: KindView}, {Kind: KindFacetNavigation}}},
			wantErr: "facetnavigation requires resultset",
		},
		{
			name:    "result set without view",
			config:  Config{Providers: []ProviderConfig{{Kind: KindResultSet}}},
			wantErr: "resultset requires view",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Config{
		Backend: &BackendConfig{Type: "etcd"},
		Logging: &LoggingConfig{Level: "trace"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
	assert.Contains(t, err.Error(), "trace")
}

func TestLoad(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, cfg.Providers, 4)
	})

	t.Run("directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(sampleConfig), 0644))

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, BackendRedis, cfg.Backend.GetType())
	})

	t.Run("yml fallback", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dataprovider.yml"), []byte("root_type: nt:unstructured\n"), 0644))

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "nt:unstructured", cfg.GetRootType())
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no dataprovider.yaml")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to stat path")
	})

	t.Run("invalid content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("providers:\n  - kind: search\n"), 0644))

		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
