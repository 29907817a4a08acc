package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/dataprovider/nodetype"
	"github.com/zero-day-ai/dataprovider/store"
)

func TestBuildNamespaces(t *testing.T) {
	cfg := &Config{Namespaces: map[string]string{
		"shop": "http://example.com/shop/1.0",
		"crm":  "http://example.com/crm/1.0",
	}}

	ns, err := cfg.BuildNamespaces()
	require.NoError(t, err)

	n, err := ns.ResolveName("shop:product")
	require.NoError(t, err)
	assert.Equal(t, store.NewName("http://example.com/shop/1.0", "product"), n)

	n, err = ns.ResolveName("nt:folder")
	require.NoError(t, err)
	assert.Equal(t, nodetype.Folder, n)
}

func TestBuildNamespaces_Conflict(t *testing.T) {
	cfg := &Config{Namespaces: map[string]string{"nt": "http://example.com/other"}}

	_, err := cfg.BuildNamespaces()
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNamespace)
}

func TestRegisterNodeTypes(t *testing.T) {
	cfg := &Config{
		Namespaces: map[string]string{"shop": "http://example.com/shop/1.0"},
		NodeTypes: []NodeTypeConfig{
			{
				Name:       "shop:product",
				Supertypes: []string{"nt:unstructured"},
				Properties: []PropertyConfig{
					{Name: "shop:sku", Type: "string", Mandatory: true},
					{Type: "long", Multiple: true},
				},
			},
			{
				Name: "shop:catalog",
				Children: []ChildConfig{
					{Name: "shop:featured", RequiredTypes: []string{"shop:product"}, DefaultType: "shop:product"},
					{RequiredTypes: []string{"nt:base"}, DefaultType: "nt:unstructured", SameNameSiblings: true},
				},
			},
		},
	}

	ns, err := cfg.BuildNamespaces()
	require.NoError(t, err)
	reg := nodetype.NewRegistry()
	require.NoError(t, cfg.RegisterNodeTypes(ns, reg))

	product := store.NewName("http://example.com/shop/1.0", "product")
	catalog := store.NewName("http://example.com/shop/1.0", "catalog")
	sku := store.NewName("http://example.com/shop/1.0", "sku")
	featured := store.NewName("http://example.com/shop/1.0", "featured")

	assert.True(t, reg.IsNodeType(product, nodetype.Unstructured))
	assert.True(t, reg.IsNodeType(catalog, nodetype.Base))

	pd, err := reg.PropertyDefinition(product, nil, sku, false)
	require.NoError(t, err)
	assert.Equal(t, product, pd.DeclaringType)
	assert.Equal(t, store.TypeString, pd.Type)

	pd, err = reg.PropertyDefinition(product, nil, store.NewName("", "rating"), true)
	require.NoError(t, err)
	assert.True(t, pd.Residual)
	assert.Equal(t, store.TypeLong, pd.Type)

	nd, err := reg.ChildDefinition(catalog, nil, featured, store.Name{})
	require.NoError(t, err)
	assert.Equal(t, featured, nd.Name)
	assert.Equal(t, product, nd.DefaultType)

	nd, err = reg.ChildDefinition(catalog, nil, store.NewName("", "misc"), store.Name{})
	require.NoError(t, err)
	assert.True(t, nd.Residual)
}

func TestRegisterNodeTypes_Errors(t *testing.T) {
	tests := []struct {
		name      string
		nodeTypes []NodeTypeConfig
		wantErr   string
	}{
		{
			name:      "unknown prefix",
			nodeTypes: []NodeTypeConfig{{Name: "shop:product"}},
			wantErr:   "node_types[0] shop:product",
		},
		{
			name:      "undeclared supertype",
			nodeTypes: []NodeTypeConfig{{Name: "product", Supertypes: []string{"catalog"}}},
			wantErr:   "supertype",
		},
		{
			name: "unknown property type",
			nodeTypes: []NodeTypeConfig{{
				Name:       "product",
				Properties: []PropertyConfig{{Name: "sku", Type: "decimal"}},
			}},
			wantErr: `unknown property type "decimal"`,
		},
		{
			name:      "duplicate type",
			nodeTypes: []NodeTypeConfig{{Name: "product"}, {Name: "product"}},
			wantErr:   "node_types[1] product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{NodeTypes: tt.nodeTypes}
			ns, err := cfg.BuildNamespaces()
			require.NoError(t, err)

			err = cfg.RegisterNodeTypes(ns, nodetype.NewRegistry())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
