package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
)

const testUser = "u-1"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "store.db")), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDescriptor(t *testing.T) {
	s := openTestStore(t)
	assert.Equal(t, "local", s.Descriptor().ID)
	assert.False(t, s.Capabilities().NativeExcludeIDs)
}

func TestStreamsLifecycle(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t).Streams()

	_, err := st.Create(ctx, testUser, &store.Stream{ID: "health", Name: "Health"})
	require.NoError(t, err)
	health := "health"
	_, err = st.Create(ctx, testUser, &store.Stream{ID: "weight", Name: "Weight", ParentID: &health})
	require.NoError(t, err)

	t.Run("duplicate conflicts", func(t *testing.T) {
		_, err := st.Create(ctx, testUser, &store.Stream{ID: "health", Name: "Again"})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDItemAlreadyExists))
	})

	t.Run("forest with children", func(t *testing.T) {
		forest, err := st.Get(ctx, testUser, store.StreamsQuery{})
		require.NoError(t, err)
		require.Len(t, forest, 1)
		require.Len(t, forest[0].Children, 1)
		assert.Equal(t, "weight", forest[0].Children[0].ID)
	})

	t.Run("update renames", func(t *testing.T) {
		updated, err := st.Update(ctx, testUser, &store.Stream{
			ID: "weight", ParentID: &health, Name: "Body weight",
		})
		require.NoError(t, err)
		assert.Equal(t, "Body weight", updated.Name)
	})

	t.Run("update missing target", func(t *testing.T) {
		_, err := st.Update(ctx, testUser, &store.Stream{ID: "ghost", Name: "Ghost"})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDUnknownResource))
	})

	t.Run("delete subtree records deletions", func(t *testing.T) {
		require.NoError(t, st.Delete(ctx, testUser, "health"))

		deletions, err := st.GetDeletions(ctx, testUser, 0)
		require.NoError(t, err)
		assert.Len(t, deletions, 2)

		_, err = st.GetOne(ctx, testUser, "weight", store.StreamsQuery{})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDUnknownResource))
	})

	t.Run("createDeleted is readable back", func(t *testing.T) {
		require.NoError(t, st.CreateDeleted(ctx, testUser, &store.StreamDeletion{ID: "synced", Deleted: 12345}))
		deletions, err := st.GetDeletions(ctx, testUser, 12345)
		require.NoError(t, err)
		require.NotEmpty(t, deletions)
		assert.Equal(t, "synced", deletions[0].ID)
	})
}

func TestEventsLifecycle(t *testing.T) {
	ctx := context.Background()
	ev := openTestStore(t).Events()

	end := 1060.0
	created, err := ev.Create(ctx, testUser, &store.Event{
		ID:        "e-1",
		StreamIDs: []string{"health", "diary"},
		Time:      1000,
		EndTime:   &end,
		Type:      "position/wgs84",
		Content:   map[string]any{"latitude": 46.5, "longitude": 6.6},
		Modified:  1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "e-1", created.ID)

	_, err = ev.Create(ctx, testUser, &store.Event{
		ID: "e-2", StreamIDs: []string{"diary"}, Time: 1100, Type: "note/txt",
		Content: "running", Modified: 1100,
	})
	require.NoError(t, err)

	t.Run("content round trips as JSON", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{ID: "e-1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		content, ok := got[0].Content.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 46.5, content["latitude"])
		assert.Equal(t, []string{"health", "diary"}, got[0].StreamIDs)
	})

	t.Run("stream filter", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{
			Streams: []store.StreamQueryNode{{Any: []string{"health"}}},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-1", got[0].ID)
	})

	t.Run("running filter maps to end_time", func(t *testing.T) {
		running := true
		got, err := ev.Get(ctx, testUser, store.EventsQuery{Running: &running})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-2", got[0].ID)
	})

	t.Run("modified since strictly greater", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{ModifiedSince: ptr(1000.0)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-2", got[0].ID)
	})

	t.Run("duplicate conflicts", func(t *testing.T) {
		_, err := ev.Create(ctx, testUser, &store.Event{ID: "e-1", Time: 1})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDItemAlreadyExists))
	})

	t.Run("update missing target", func(t *testing.T) {
		_, err := ev.Update(ctx, testUser, &store.Event{ID: "ghost", Time: 1})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDInvalidItemID))
	})

	t.Run("cursor pages in order", func(t *testing.T) {
		cursor, err := ev.GetStreamed(ctx, testUser, store.EventsQuery{SortAscending: true})
		require.NoError(t, err)
		defer cursor.Close()

		first, err := cursor.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "e-1", first.ID)
	})

	t.Run("delete removes permanently", func(t *testing.T) {
		require.NoError(t, ev.Delete(ctx, testUser, "e-2"))
		err := ev.Delete(ctx, testUser, "e-2")
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDUnknownResource))
	})
}

func TestEventAttachments(t *testing.T) {
	ctx := context.Background()
	ev := openTestStore(t).Events()

	_, err := ev.Create(ctx, testUser, &store.Event{
		ID: "e-1", StreamIDs: []string{"health"}, Time: 1000, Type: "note/txt",
	})
	require.NoError(t, err)

	saved, err := ev.SaveAttachedFiles(ctx, testUser, "e-1", []store.AttachedFile{
		{FileName: "note.txt", Type: "text/plain", Reader: strings.NewReader("payload")},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, int64(7), saved[0].Size)

	got, err := ev.Get(ctx, testUser, store.EventsQuery{ID: "e-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attachments, 1)
	assert.Equal(t, "note.txt", got[0].Attachments[0].FileName)

	rc, err := ev.GetAttachedFile(ctx, testUser, "e-1", saved[0].ID)
	require.NoError(t, err)
	buf := make([]byte, 7)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(buf))

	updated, err := ev.DeleteAttachedFile(ctx, testUser, "e-1", saved[0].ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Attachments)
}

func ptr(v float64) *float64 { return &v }
