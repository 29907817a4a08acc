package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/dataprovider/store"
)

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()
	a := newTestProvider("a", "", "")
	b := newTestProvider("b", "", "")

	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	require.NoError(t, r.Add(a), "re-adding the same provider is allowed")

	err := r.Add(newTestProvider("a", "", ""))
	assert.ErrorIs(t, err, ErrDuplicateProvider)

	got, err := r.Lookup("b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	providers := r.Providers()
	require.Len(t, providers, 2)
	assert.Equal(t, "a", providers[0].Name())
	assert.Equal(t, "b", providers[1].Name())
}

func TestRegistry_Bind(t *testing.T) {
	r := NewRegistry()
	a := newTestProvider("a", "", "")
	b := newTestProvider("b", "", "")
	folder := store.NewName(store.NamespaceNav, "folder")
	result := store.NewName(store.NamespaceNav, "result")

	require.NoError(t, r.BindExternal(folder, a))
	require.NoError(t, r.BindVirtual(result, b))

	assert.ErrorIs(t, r.BindExternal(folder, b), ErrDuplicateProvider)
	assert.ErrorIs(t, r.BindVirtual(result, a), ErrDuplicateProvider)

	got, ok := r.External(folder)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.External(result)
	assert.False(t, ok)

	p, err := r.LookupType(result)
	require.NoError(t, err)
	assert.Same(t, b, p)

	p, err = r.LookupType(folder)
	require.NoError(t, err)
	assert.Same(t, a, p)

	_, err = r.LookupType(store.NewName(store.NamespaceNav, "other"))
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistry_LookupTypePrefersProducer(t *testing.T) {
	r := NewRegistry()
	augmenting := newTestProvider("augmenting", "", "")
	producing := newTestProvider("producing", "", "")
	nodeType := store.NewName(store.NamespaceNav, "mirror")

	require.NoError(t, r.BindExternal(nodeType, augmenting))
	require.NoError(t, r.BindVirtual(nodeType, producing))

	p, err := r.LookupType(nodeType)
	require.NoError(t, err)
	assert.Same(t, producing, p)
}

func TestRegistry_Freeze(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Frozen())

	r.Freeze()
	assert.True(t, r.Frozen())

	p := newTestProvider("late", "", "")
	assert.ErrorIs(t, r.Add(p), ErrRegistryFrozen)
	assert.ErrorIs(t, r.BindExternal(store.NewName("", "x"), p), ErrRegistryFrozen)
	assert.ErrorIs(t, r.BindVirtual(store.NewName("", "x"), p), ErrRegistryFrozen)
}
