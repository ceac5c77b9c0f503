package memstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/pkg/timestamp"
	"github.com/c360/datamall/store"
)

type events struct {
	s *Store
}

func (ev *events) Get(ctx context.Context, uid string, q store.EventsQuery) ([]*store.Event, error) {
	ev.s.mu.RLock()
	defer ev.s.mu.RUnlock()

	u := ev.s.userRead(uid)
	if u == nil {
		return []*store.Event{}, nil
	}
	return u.queryEvents(q), nil
}

func (ev *events) GetStreamed(ctx context.Context, uid string, q store.EventsQuery) (store.EventsCursor, error) {
	matched, err := ev.Get(ctx, uid, q)
	if err != nil {
		return nil, err
	}
	return &sliceCursor{events: matched}, nil
}

func (ev *events) Create(ctx context.Context, uid string, e *store.Event) (*store.Event, error) {
	ev.s.mu.Lock()
	defer ev.s.mu.Unlock()

	u := ev.s.user(uid)
	created := e.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, exists := u.events[created.ID]; exists {
		return nil, errors.NewItemAlreadyExists("event", map[string]any{"id": created.ID})
	}
	u.events[created.ID] = created
	u.order = append(u.order, created.ID)
	return created.Clone(), nil
}

func (ev *events) Update(ctx context.Context, uid string, e *store.Event) (*store.Event, error) {
	ev.s.mu.Lock()
	defer ev.s.mu.Unlock()

	u := ev.s.user(uid)
	existing, ok := u.events[e.ID]
	if !ok {
		return nil, errors.NewInvalidItemID(e.ID)
	}
	updated := e.Clone()
	updated.Created = existing.Created
	updated.CreatedBy = existing.CreatedBy
	u.events[updated.ID] = updated
	return updated.Clone(), nil
}

func (ev *events) Delete(ctx context.Context, uid, id string) error {
	ev.s.mu.Lock()
	defer ev.s.mu.Unlock()

	u := ev.s.user(uid)
	if _, ok := u.events[id]; !ok {
		return errors.NewUnknownResource("event", id)
	}
	delete(u.events, id)
	delete(u.files, id)
	for i, oid := range u.order {
		if oid == id {
			u.order = append(u.order[:i], u.order[i+1:]...)
			break
		}
	}
	return nil
}

func (ev *events) SaveAttachedFiles(ctx context.Context, uid, eventID string, files []store.AttachedFile) ([]store.Attachment, error) {
	ev.s.mu.Lock()
	defer ev.s.mu.Unlock()

	u := ev.s.user(uid)
	e, ok := u.events[eventID]
	if !ok {
		return nil, errors.NewUnknownResource("event", eventID)
	}

	saved := make([]store.Attachment, 0, len(files))
	for _, f := range files {
		content, err := io.ReadAll(f.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "memstore", "SaveAttachedFiles", "read file")
		}
		sum := sha256.Sum256(content)
		att := store.Attachment{
			ID:        uuid.NewString(),
			FileName:  f.FileName,
			Type:      f.Type,
			Size:      int64(len(content)),
			Integrity: "sha256-" + base64.StdEncoding.EncodeToString(sum[:]),
		}
		if u.files[eventID] == nil {
			u.files[eventID] = make(map[string][]byte)
		}
		u.files[eventID][att.ID] = content
		e.Attachments = append(e.Attachments, att)
		saved = append(saved, att)
	}
	return saved, nil
}

func (ev *events) GetAttachedFile(ctx context.Context, uid, eventID, fileID string) (io.ReadCloser, error) {
	ev.s.mu.RLock()
	defer ev.s.mu.RUnlock()

	u := ev.s.userRead(uid)
	if u == nil || u.files[eventID] == nil || u.files[eventID][fileID] == nil {
		return nil, errors.NewUnknownResource("attachment", fileID)
	}
	return io.NopCloser(bytes.NewReader(u.files[eventID][fileID])), nil
}

func (ev *events) DeleteAttachedFile(ctx context.Context, uid, eventID, fileID string) (*store.Event, error) {
	ev.s.mu.Lock()
	defer ev.s.mu.Unlock()

	u := ev.s.user(uid)
	e, ok := u.events[eventID]
	if !ok {
		return nil, errors.NewUnknownResource("event", eventID)
	}
	found := false
	kept := e.Attachments[:0]
	for _, att := range e.Attachments {
		if att.ID == fileID {
			found = true
			continue
		}
		kept = append(kept, att)
	}
	if !found {
		return nil, errors.NewUnknownResource("attachment", fileID)
	}
	e.Attachments = kept
	if u.files[eventID] != nil {
		delete(u.files[eventID], fileID)
	}
	return e.Clone(), nil
}

// sliceCursor walks a pre-materialized result set.
type sliceCursor struct {
	events []*store.Event
	next   int
}

func (c *sliceCursor) Next(ctx context.Context) (*store.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.next >= len(c.events) {
		return nil, nil
	}
	e := c.events[c.next]
	c.next++
	return e, nil
}

func (c *sliceCursor) Close() error {
	c.events = nil
	return nil
}

// queryEvents filters, sorts and pages the user's events. Callers hold at
// least the read lock.
func (u *userState) queryEvents(q store.EventsQuery) []*store.Event {
	now := timestamp.Now()

	matched := []*store.Event{}
	for _, id := range u.order {
		e := u.events[id]
		if matchesEvent(e, q, now) {
			matched = append(matched, e.Clone())
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.SortAscending {
			return matched[i].Time < matched[j].Time
		}
		return matched[i].Time > matched[j].Time
	})

	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			return []*store.Event{}
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched
}

func matchesEvent(e *store.Event, q store.EventsQuery, now float64) bool {
	if q.ID != "" && e.ID != q.ID {
		return false
	}
	if q.HeadID != "" && e.ID != q.HeadID {
		return false
	}
	if !store.MatchesState(e, q.State) {
		return false
	}
	if len(q.Types) > 0 && !store.MatchesType(e.Type, q.Types) {
		return false
	}
	if len(q.Streams) > 0 && !store.MatchesStreams(e, q.Streams) {
		return false
	}
	if q.Running != nil && *q.Running != e.IsRunning() {
		return false
	}
	if q.ModifiedSince != nil && e.Modified <= *q.ModifiedSince {
		return false
	}
	return store.MatchesWindow(e, q.FromTime, q.ToTime, now)
}
