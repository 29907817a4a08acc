package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/dataprovider/store"
)

var folder = store.NewName(store.NamespaceNT, "folder")

// setupTestStore creates a miniredis instance and returns an initialized Store.
func setupTestStore(t *testing.T) (*Store, uuid.UUID, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := New(Options{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		Prefix:         "test",
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root, err := s.Init(context.Background(), folder)
	require.NoError(t, err)
	return s, root, mr
}

func TestNew(t *testing.T) {
	t.Run("connection failure", func(t *testing.T) {
		_, err := New(Options{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := New(Options{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestInit(t *testing.T) {
	s, root, mr := setupTestStore(t)
	ctx := context.Background()

	again, err := s.Init(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, root, again, "Init keeps an existing root")

	got, err := s.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	raw, err := mr.Get("test:root")
	require.NoError(t, err)
	assert.Equal(t, root.String(), raw)

	node, err := s.Node(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, folder, node.NodeType)
	assert.Nil(t, node.ParentID)
}

func TestRoot_NotInitialized(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := New(Options{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Root(context.Background())
	assert.ErrorIs(t, err, store.ErrNoSuchItem)
}

func TestAddNodeAndProperties(t *testing.T) {
	s, root, _ := setupTestStore(t)
	ctx := context.Background()

	doc := store.NewName("", "doc")
	a, err := s.AddNode(ctx, root, doc, folder)
	require.NoError(t, err)
	b, err := s.AddNode(ctx, root, doc, folder)
	require.NoError(t, err)

	color := store.NewName("", "color")
	title := store.NewName(store.NamespaceJCR, "title")
	require.NoError(t, s.SetProperty(ctx, a, title, "Hello"))
	require.NoError(t, s.SetProperty(ctx, a, color, "red", "blue"))

	rootNode, err := s.Node(ctx, root)
	require.NoError(t, err)
	children := rootNode.Children()
	require.Len(t, children, 2)
	assert.Equal(t, a, children[0].ID.UUID())
	assert.Equal(t, b, children[1].ID.UUID())
	assert.Equal(t, 2, children[1].Index)

	node, err := s.Node(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, doc, node.Name)
	assert.Equal(t, root, node.ParentID.UUID())
	assert.Equal(t, []store.Name{color, title}, node.PropertyNames(), "properties come back sorted by name")

	prop, err := s.Property(ctx, a, color)
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue"}, prop.Values)
	assert.True(t, prop.Multiple)
	assert.Equal(t, a, prop.ParentID.UUID())

	_, err = s.Property(ctx, a, store.NewName("", "missing"))
	assert.ErrorIs(t, err, store.ErrNoSuchItem)

	_, err = s.Node(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNoSuchItem)

	_, err = s.AddNode(ctx, uuid.New(), doc, folder)
	assert.ErrorIs(t, err, store.ErrNoSuchItem)

	assert.ErrorIs(t, s.SetProperty(ctx, uuid.New(), color, "red"), store.ErrNoSuchItem)
}

func TestPutNodeRoundTrip(t *testing.T) {
	s, root, _ := setupTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	cid := store.NewCanonicalID(id)
	state := store.NewNodeState(cid, folder, store.NewCanonicalID(root), store.StatusNew)
	state.Name = store.NewName(store.NamespaceNav, "config")
	state.Mixins = []store.Name{store.NewName(store.NamespaceMix, "referenceable")}
	p := store.NewPropertyState(store.NewName(store.NamespaceNav, "view"), cid, store.StatusNew)
	p.Type = store.TypeName
	p.Multiple = true
	p.SetValues("color=red")
	state.SetProperty(p)
	state.AddChild(store.NewName("", "child"), store.NewCanonicalID(uuid.New()))

	require.NoError(t, s.PutNode(ctx, state))

	got, err := s.Node(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, state.Name, got.Name)
	assert.Equal(t, state.Mixins, got.Mixins)
	assert.Equal(t, store.StatusExisting, got.Status)
	assert.Equal(t, state.Children()[0].ID.UUID(), got.Children()[0].ID.UUID())

	gp, ok := got.Property(p.Name)
	require.True(t, ok)
	assert.Equal(t, store.TypeName, gp.Type)
	assert.Equal(t, []string{"color=red"}, gp.Values)

	state.Reset()
	require.NoError(t, s.PutNode(ctx, state))
	got, err = s.Node(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Properties(), "PutNode replaces the previous version")
	assert.False(t, got.HasChildren())

	assert.ErrorIs(t, s.PutNode(ctx, nil), store.ErrItemState)
}

func TestRemoveNode(t *testing.T) {
	s, root, mr := setupTestStore(t)
	ctx := context.Background()

	id, err := s.AddNode(ctx, root, store.NewName("", "doc"), folder)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(ctx, id, store.NewName("", "color"), "red"))

	require.NoError(t, s.RemoveNode(ctx, id))

	_, err = s.Node(ctx, id)
	assert.ErrorIs(t, err, store.ErrNoSuchItem)
	assert.False(t, mr.Exists("test:node:"+id.String()+":props"))

	rootNode, err := s.Node(ctx, root)
	require.NoError(t, err)
	assert.False(t, rootNode.HasChildren())

	assert.ErrorIs(t, s.RemoveNode(ctx, id), store.ErrNoSuchItem)
}

func TestNode_CorruptRecord(t *testing.T) {
	s, root, mr := setupTestStore(t)
	ctx := context.Background()

	mr.HSet("test:node:"+root.String(), "type", "{broken")

	_, err := s.Node(ctx, root)
	assert.ErrorIs(t, err, store.ErrItemState)
}
