package memstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
)

const testUser = "u-1"

func newStream(id, name string, parentID *string) *store.Stream {
	return &store.Stream{ID: id, Name: name, ParentID: parentID}
}

func TestStreamsCRUD(t *testing.T) {
	ctx := context.Background()
	s := New("mem", "Memory").Streams()

	_, err := s.Create(ctx, testUser, newStream("health", "Health", nil))
	require.NoError(t, err)
	health := "health"
	_, err = s.Create(ctx, testUser, newStream("weight", "Weight", &health))
	require.NoError(t, err)

	t.Run("duplicate id conflicts", func(t *testing.T) {
		_, err := s.Create(ctx, testUser, newStream("health", "Other", nil))
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDItemAlreadyExists))
	})

	t.Run("unknown parent rejected", func(t *testing.T) {
		ghost := "ghost"
		_, err := s.Create(ctx, testUser, newStream("orphan", "Orphan", &ghost))
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDUnknownResource))
	})

	t.Run("forest resolves children", func(t *testing.T) {
		forest, err := s.Get(ctx, testUser, store.StreamsQuery{})
		require.NoError(t, err)
		require.Len(t, forest, 1)
		require.Len(t, forest[0].Children, 1)
		assert.Equal(t, "weight", forest[0].Children[0].ID)
	})

	t.Run("getOne returns a subtree", func(t *testing.T) {
		node, err := s.GetOne(ctx, testUser, "health", store.StreamsQuery{})
		require.NoError(t, err)
		assert.Equal(t, "Health", node.Name)
		require.Len(t, node.Children, 1)
	})

	t.Run("update keeps creation audit", func(t *testing.T) {
		updated, err := s.Update(ctx, testUser, &store.Stream{ID: "weight", ParentID: &health, Name: "Body weight"})
		require.NoError(t, err)
		assert.Equal(t, "Body weight", updated.Name)
	})

	t.Run("exclusion prunes subtrees", func(t *testing.T) {
		forest, err := s.Get(ctx, testUser, store.StreamsQuery{ExcludeIDs: []string{"weight"}})
		require.NoError(t, err)
		require.Len(t, forest, 1)
		assert.Empty(t, forest[0].Children)
	})

	t.Run("delete removes the subtree and records deletions", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, testUser, "health"))

		_, err := s.GetOne(ctx, testUser, "weight", store.StreamsQuery{})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDUnknownResource))

		deletions, err := s.GetDeletions(ctx, testUser, 0)
		require.NoError(t, err)
		assert.Len(t, deletions, 2)
	})

	t.Run("createDeleted records a synced deletion", func(t *testing.T) {
		require.NoError(t, s.CreateDeleted(ctx, testUser, &store.StreamDeletion{ID: "imported", Deleted: 500}))
		deletions, err := s.GetDeletions(ctx, testUser, 600)
		require.NoError(t, err)
		for _, d := range deletions {
			assert.NotEqual(t, "imported", d.ID)
		}
	})
}

func TestStreamsState(t *testing.T) {
	ctx := context.Background()
	s := New("mem", "Memory").Streams()

	_, err := s.Create(ctx, testUser, newStream("live", "Live", nil))
	require.NoError(t, err)
	_, err = s.Create(ctx, testUser, &store.Stream{ID: "bin", Name: "Bin", Trashed: true})
	require.NoError(t, err)

	forest, err := s.Get(ctx, testUser, store.StreamsQuery{})
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, "live", forest[0].ID)

	forest, err = s.Get(ctx, testUser, store.StreamsQuery{State: store.StateTrashed})
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, "bin", forest[0].ID)

	forest, err = s.Get(ctx, testUser, store.StreamsQuery{State: store.StateAll})
	require.NoError(t, err)
	assert.Len(t, forest, 2)
}

func seedEvents(t *testing.T, ev store.Events) {
	t.Helper()
	ctx := context.Background()
	end715 := 720.0
	fixtures := []*store.Event{
		{ID: "e-1", StreamIDs: []string{"health"}, Time: 700, EndTime: ptr(700.0), Type: "mass/kg", Content: 70.0, Modified: 700},
		{ID: "e-2", StreamIDs: []string{"health", "diary"}, Time: 715, EndTime: &end715, Type: "count/generic", Content: 2.0, Modified: 715},
		{ID: "e-3", StreamIDs: []string{"diary"}, Time: 730, EndTime: nil, Type: "note/txt", Content: "running", Modified: 730},
		{ID: "e-4", StreamIDs: []string{"health"}, Time: 745, EndTime: ptr(745.0), Type: "mass/lb", Content: 154.0, Trashed: true, Modified: 745},
	}
	for _, e := range fixtures {
		_, err := ev.Create(ctx, testUser, e)
		require.NoError(t, err)
	}
}

func TestEventsQuery(t *testing.T) {
	ctx := context.Background()
	ev := New("mem", "Memory").Events()
	seedEvents(t, ev)

	t.Run("default order is newest first", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "e-3", got[0].ID)
		assert.Equal(t, "e-1", got[2].ID)
	})

	t.Run("stream any filter", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{
			Streams: []store.StreamQueryNode{{Any: []string{"diary"}}},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("and with not", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{
			Streams: []store.StreamQueryNode{{And: []string{"health"}, Not: []string{"diary"}}},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-1", got[0].ID)
	})

	t.Run("type wildcard", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{
			State: store.StateAll,
			Types: []string{"mass/*"},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("running filter", func(t *testing.T) {
		running := true
		got, err := ev.Get(ctx, testUser, store.EventsQuery{Running: &running})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-3", got[0].ID)
	})

	t.Run("window overlap includes spanning events", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{
			FromTime: ptr(718.0), ToTime: ptr(719.0),
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-2", got[0].ID)
	})

	t.Run("running events match open windows", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{FromTime: ptr(800.0)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-3", got[0].ID)
	})

	t.Run("modified since is strictly greater", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{ModifiedSince: ptr(715.0)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-3", got[0].ID)
	})

	t.Run("skip and limit page ascending", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{SortAscending: true, Skip: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-2", got[0].ID)
	})

	t.Run("trashed state isolates trashed events", func(t *testing.T) {
		got, err := ev.Get(ctx, testUser, store.EventsQuery{State: store.StateTrashed})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e-4", got[0].ID)
	})
}

func TestEventsCursor(t *testing.T) {
	ctx := context.Background()
	ev := New("mem", "Memory").Events()
	seedEvents(t, ev)

	cursor, err := ev.GetStreamed(ctx, testUser, store.EventsQuery{SortAscending: true})
	require.NoError(t, err)
	defer cursor.Close()

	seen := []string{}
	for {
		e, err := cursor.Next(ctx)
		require.NoError(t, err)
		if e == nil {
			break
		}
		seen = append(seen, e.ID)
	}
	assert.Equal(t, []string{"e-1", "e-2", "e-3"}, seen)
}

func TestEventsCRUD(t *testing.T) {
	ctx := context.Background()
	ev := New("mem", "Memory").Events()
	seedEvents(t, ev)

	t.Run("duplicate id conflicts", func(t *testing.T) {
		_, err := ev.Create(ctx, testUser, &store.Event{ID: "e-1", Time: 1})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDItemAlreadyExists))
	})

	t.Run("update missing target", func(t *testing.T) {
		_, err := ev.Update(ctx, testUser, &store.Event{ID: "nope", Time: 1})
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDInvalidItemID))
	})

	t.Run("update replaces content", func(t *testing.T) {
		updated, err := ev.Update(ctx, testUser, &store.Event{
			ID: "e-1", StreamIDs: []string{"health"}, Time: 700, EndTime: ptr(700.0),
			Type: "mass/kg", Content: 71.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 71.0, updated.Content)
	})

	t.Run("delete removes permanently", func(t *testing.T) {
		require.NoError(t, ev.Delete(ctx, testUser, "e-1"))
		err := ev.Delete(ctx, testUser, "e-1")
		require.Error(t, err)
		assert.True(t, errors.HasID(err, errors.IDUnknownResource))
	})
}

func TestAttachments(t *testing.T) {
	ctx := context.Background()
	ev := New("mem", "Memory").Events()
	seedEvents(t, ev)

	saved, err := ev.SaveAttachedFiles(ctx, testUser, "e-1", []store.AttachedFile{
		{FileName: "report.txt", Type: "text/plain", Reader: strings.NewReader("hello")},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, int64(5), saved[0].Size)
	assert.Contains(t, saved[0].Integrity, "sha256-")

	rc, err := ev.GetAttachedFile(ctx, testUser, "e-1", saved[0].ID)
	require.NoError(t, err)
	content := make([]byte, 5)
	_, err = rc.Read(content)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(content))

	updated, err := ev.DeleteAttachedFile(ctx, testUser, "e-1", saved[0].ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Attachments)

	_, err = ev.GetAttachedFile(ctx, testUser, "e-1", saved[0].ID)
	require.Error(t, err)
	assert.True(t, errors.HasID(err, errors.IDUnknownResource))
}

func ptr(v float64) *float64 { return &v }
