package mall

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/queryplan"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/store/memstore"
	"github.com/c360/datamall/types"
)

const testUser = "u-1"

func newTestMall(t *testing.T, opts ...Option) *Mall {
	t.Helper()
	m := New(opts...)
	require.NoError(t, m.AddStore(memstore.New("local", "Local")))
	require.NoError(t, m.AddStore(memstore.New("archive", "Archive")))
	require.NoError(t, m.Init())
	return m
}

func TestRegistry(t *testing.T) {
	t.Run("init requires the local store", func(t *testing.T) {
		m := New()
		require.NoError(t, m.AddStore(memstore.New("archive", "Archive")))
		err := m.Init()
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDInvalidOperation))
	})

	t.Run("duplicate store id rejected", func(t *testing.T) {
		m := New()
		require.NoError(t, m.AddStore(memstore.New("local", "Local")))
		err := m.AddStore(memstore.New("local", "Again"))
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDItemAlreadyExists))
	})

	t.Run("registry closes at init", func(t *testing.T) {
		m := newTestMall(t)
		err := m.AddStore(memstore.New("late", "Late"))
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDInvalidOperation))
	})

	t.Run("descriptors in registration order", func(t *testing.T) {
		m := newTestMall(t)
		descs := m.Descriptors()
		require.Len(t, descs, 2)
		assert.Equal(t, "local", descs[0].ID)
		assert.Equal(t, "archive", descs[1].ID)
	})
}

func seedStreams(t *testing.T, m *Mall) {
	t.Helper()
	ctx := context.Background()
	_, err := m.Streams().Create(ctx, testUser, &types.Stream{ID: "health", Name: "Health"})
	require.NoError(t, err)
	parent := "health"
	_, err = m.Streams().Create(ctx, testUser, &types.Stream{ID: "weight", Name: "Weight", ParentID: &parent})
	require.NoError(t, err)
	_, err = m.Streams().Create(ctx, testUser, &types.Stream{ID: ":archive:old", Name: "Old"})
	require.NoError(t, err)
}

func TestStreamsFacade(t *testing.T) {
	ctx := context.Background()
	m := newTestMall(t)
	seedStreams(t, m)

	t.Run("root query wraps named stores", func(t *testing.T) {
		forest, err := m.Streams().Get(ctx, testUser, queryplan.StreamsRequest{})
		require.NoError(t, err)
		require.Len(t, forest, 2)
		assert.Equal(t, "health", forest[0].ID)
		assert.Equal(t, ":archive:", forest[1].ID)
		assert.Equal(t, "Archive", forest[1].Name)
		require.Len(t, forest[1].Children, 1)
		assert.Equal(t, ":archive:old", forest[1].Children[0].ID)
	})

	t.Run("getOne resolves across stores", func(t *testing.T) {
		node, err := m.Streams().GetOne(ctx, testUser, ":archive:old", store.StateDefault)
		require.NoError(t, err)
		assert.Equal(t, "Old", node.Name)
		require.NotNil(t, node.ParentID)
		assert.Equal(t, ":archive:", *node.ParentID)
	})

	t.Run("getOne of the platform root wraps the whole forest", func(t *testing.T) {
		node, err := m.Streams().GetOne(ctx, testUser, "*", store.StateDefault)
		require.NoError(t, err)
		assert.Equal(t, "*", node.ID)
		ids := make([]string, 0, len(node.Children))
		for _, c := range node.Children {
			ids = append(ids, c.ID)
		}
		assert.Contains(t, ids, "health")
		assert.Contains(t, ids, ":archive:")
	})

	t.Run("getOne of a store root synthesizes it", func(t *testing.T) {
		node, err := m.Streams().GetOne(ctx, testUser, ":archive:", store.StateDefault)
		require.NoError(t, err)
		assert.Equal(t, ":archive:", node.ID)
		require.Len(t, node.Children, 1)
	})

	t.Run("sibling names are unique case-sensitively", func(t *testing.T) {
		parent := "health"
		_, err := m.Streams().Create(ctx, testUser, &types.Stream{Name: "Weight", ParentID: &parent})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDItemAlreadyExists))

		created, err := m.Streams().Create(ctx, testUser, &types.Stream{Name: "weight", ParentID: &parent})
		require.NoError(t, err, "a name differing only in case must pass")
		require.NoError(t, m.Streams().Delete(ctx, testUser, created.ID))
	})

	t.Run("generated ids are store qualified", func(t *testing.T) {
		created, err := m.Streams().Create(ctx, testUser, &types.Stream{Name: "Archive box", ParentID: ptrStr(":archive:old")})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(created.ID, ":archive:"))
	})

	t.Run("update renames", func(t *testing.T) {
		updated, err := m.Streams().Update(ctx, testUser, &types.Stream{ID: "weight", ParentID: ptrStr("health"), Name: "Body weight"})
		require.NoError(t, err)
		assert.Equal(t, "Body weight", updated.Name)
	})

	t.Run("deletions route and qualify ids", func(t *testing.T) {
		require.NoError(t, m.Streams().CreateDeleted(ctx, testUser, ":archive:gone", 1234))
		deletions, err := m.Streams().GetDeletions(ctx, testUser, "archive", 0)
		require.NoError(t, err)
		require.NotEmpty(t, deletions)
		assert.Equal(t, ":archive:gone", deletions[0].ID)
	})
}

// nonNativeStore hides a store's native exclusion support to exercise the
// aggregation-side pruning fallback.
type nonNativeStore struct {
	store.Store
}

func (s nonNativeStore) Capabilities() store.Capabilities {
	return store.Capabilities{}
}

func TestStreamsExclusionFallback(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.AddStore(nonNativeStore{memstore.New("local", "Local")}))
	require.NoError(t, m.Init())

	_, err := m.Streams().Create(ctx, testUser, &types.Stream{ID: "keep", Name: "Keep"})
	require.NoError(t, err)
	_, err = m.Streams().Create(ctx, testUser, &types.Stream{ID: "drop", Name: "Drop"})
	require.NoError(t, err)

	forest, err := m.Streams().Get(ctx, testUser, queryplan.StreamsRequest{ExcludeIDs: []string{"drop"}})
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, "keep", forest[0].ID)
}

func ptrStr(s string) *string { return &s }
