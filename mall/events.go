package mall

import (
	"context"
	"io"
	"slices"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/natsclient"
	"github.com/c360/datamall/queryplan"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
	"github.com/c360/datamall/transform"
	"github.com/c360/datamall/types"
)

// Events is the aggregated event facade.
type Events struct {
	m *Mall
}

// DeletionMode selects what an event deletion leaves behind.
type DeletionMode string

const (
	// ModeKeepEverything keeps the full event under a deletion timestamp.
	ModeKeepEverything DeletionMode = "keep-everything"

	// ModeKeepAuthors keeps only identity and audit fields.
	ModeKeepAuthors DeletionMode = "keep-authors"

	// ModeKeepNothing strips the event down to an id plus deletion
	// timestamp tombstone.
	ModeKeepNothing DeletionMode = "keep-nothing"
)

// Get returns the events matching the request, merged across stores and
// sorted by time.
func (ev *Events) Get(ctx context.Context, uid string, req queryplan.EventsRequest) ([]*types.Event, error) {
	done := ev.m.instrument("events", "get", "")
	merged, err := ev.get(ctx, uid, req)
	done(err)
	return merged, err
}

func (ev *Events) get(ctx context.Context, uid string, req queryplan.EventsRequest) ([]*types.Event, error) {
	plans, err := queryplan.PlanEvents(req, ev.m.StoreIDs())
	if err != nil {
		return nil, err
	}

	results := make([][]*types.Event, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	for i, plan := range plans {
		g.Go(func() error {
			events, err := ev.execute(gctx, uid, plan)
			if err != nil {
				return err
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := []*types.Event{}
	for _, events := range results {
		merged = append(merged, events...)
	}
	if len(plans) > 1 {
		sort.SliceStable(merged, func(i, j int) bool {
			if req.SortAscending {
				return merged[i].Time < merged[j].Time
			}
			return merged[i].Time > merged[j].Time
		})
		if req.Skip > 0 {
			if req.Skip >= len(merged) {
				return []*types.Event{}, nil
			}
			merged = merged[req.Skip:]
		}
		if req.Limit > 0 && req.Limit < len(merged) {
			merged = merged[:req.Limit]
		}
	}
	return merged, nil
}

// execute runs one plan against its store and converts the result.
func (ev *Events) execute(ctx context.Context, uid string, plan queryplan.EventsPlan) ([]*types.Event, error) {
	s, err := ev.m.storeFor(plan.StoreID)
	if err != nil {
		return nil, err
	}
	events, err := s.Events().Get(ctx, uid, plan.Query)
	if err != nil {
		return nil, errors.WrapStore(err, plan.StoreID, "mall", "Events.Get")
	}

	converted := make([]*types.Event, 0, len(events))
	for _, e := range events {
		w, err := ev.m.tr.EventFromStore(plan.StoreID, e)
		if err != nil {
			return nil, err
		}
		converted = append(converted, w)
	}
	return converted, nil
}

// GetOne returns exactly the event carrying the namespaced id, regardless
// of trash state.
func (ev *Events) GetOne(ctx context.Context, uid, id string) (*types.Event, error) {
	done := ev.m.instrument("events", "getOne", "")
	matches, err := ev.get(ctx, uid, queryplan.EventsRequest{ID: id, State: store.StateAll, Limit: 1})
	if err != nil {
		done(err)
		return nil, err
	}
	if len(matches) == 0 {
		err := errors.NewUnknownResource("event", id)
		done(err)
		return nil, err
	}
	done(nil)
	return matches[0], nil
}

// LoadEvent implements the series metadata cache's event loader.
func (ev *Events) LoadEvent(ctx context.Context, uid, eventID string) (*types.Event, error) {
	return ev.GetOne(ctx, uid, eventID)
}

// Cursor yields matching wire events one at a time. Next returns (nil, nil)
// once exhausted.
type Cursor interface {
	Next(ctx context.Context) (*types.Event, error)
	Close() error
}

// GetStreamed returns a cursor over the matching events. Single-store plans
// stream straight off the store; fan-out queries materialize the merged
// result first to preserve the global time order.
func (ev *Events) GetStreamed(ctx context.Context, uid string, req queryplan.EventsRequest) (Cursor, error) {
	plans, err := queryplan.PlanEvents(req, ev.m.StoreIDs())
	if err != nil {
		return nil, err
	}

	if len(plans) == 1 {
		s, err := ev.m.storeFor(plans[0].StoreID)
		if err != nil {
			return nil, err
		}
		inner, err := s.Events().GetStreamed(ctx, uid, plans[0].Query)
		if err != nil {
			return nil, errors.WrapStore(err, plans[0].StoreID, "mall", "Events.GetStreamed")
		}
		return &storeCursor{inner: inner, storeID: plans[0].StoreID, tr: ev.m.tr}, nil
	}

	merged, err := ev.get(ctx, uid, req)
	if err != nil {
		return nil, err
	}
	return &sliceCursor{events: merged}, nil
}

// Create inserts a new event. The target store comes from the stream ids;
// mixing stores fails before any store is touched.
func (ev *Events) Create(ctx context.Context, uid string, e *types.Event) (*types.Event, error) {
	if len(e.StreamIDs) == 0 {
		return nil, errors.NewInvalidRequestStructure("an event needs at least one stream id")
	}

	prepared := e.Clone()
	targetStore := storeid.Decode(prepared.StreamIDs[0]).Store
	if prepared.ID == "" {
		prepared.ID = storeid.EncodeIn(targetStore, uuid.NewString())
	}
	now := nowSeconds()
	if prepared.Created == 0 {
		prepared.Created = now
	}
	if prepared.Modified == 0 {
		prepared.Modified = now
	}

	storeID, canonical, err := ev.m.tr.EventToStore(prepared)
	if err != nil {
		return nil, err
	}
	done := ev.m.instrument("events", "create", storeID)

	backend, err := ev.m.storeFor(storeID)
	if err != nil {
		done(err)
		return nil, err
	}
	created, err := backend.Events().Create(ctx, uid, canonical)
	if err != nil {
		err = errors.WrapStore(err, storeID, "mall", "Events.Create")
		done(err)
		return nil, err
	}
	done(nil)
	return ev.m.tr.EventFromStore(storeID, created)
}

// Update replaces an existing event. Events cannot move across stores.
func (ev *Events) Update(ctx context.Context, uid string, e *types.Event) (*types.Event, error) {
	prepared := e.Clone()
	prepared.Modified = nowSeconds()

	storeID, canonical, err := ev.m.tr.EventToStore(prepared)
	if err != nil {
		return nil, err
	}
	done := ev.m.instrument("events", "update", storeID)

	backend, err := ev.m.storeFor(storeID)
	if err != nil {
		done(err)
		return nil, err
	}
	updated, err := backend.Events().Update(ctx, uid, canonical)
	if err != nil {
		err = errors.WrapStore(err, storeID, "mall", "Events.Update")
		done(err)
		return nil, err
	}
	done(nil)

	ev.m.notifyChange(uid, e.ID, natsclient.ActionUpdated)
	return ev.m.tr.EventFromStore(storeID, updated)
}

// UpdateOperations declares the per-event mutation of a bulk update.
// SetFields addresses the mutable wire fields "type", "content", "time",
// "duration" and "trashed"; DeleteFields accepts "content" and "duration".
// Stream additions and removals cannot move an event to another store.
type UpdateOperations struct {
	SetFields     map[string]any
	DeleteFields  []string
	AddStreams    []string
	RemoveStreams []string
}

// apply returns a mutated copy of the event.
func (ops UpdateOperations) apply(e *types.Event) (*types.Event, error) {
	out := e.Clone()
	for field, value := range ops.SetFields {
		if err := setField(out, field, value); err != nil {
			return nil, err
		}
	}
	for _, field := range ops.DeleteFields {
		switch field {
		case "content":
			out.Content = nil
		case "duration":
			out.Duration = types.NoDuration()
		default:
			return nil, errors.NewInvalidRequestStructure("field %q cannot be deleted", field)
		}
	}
	for _, id := range ops.AddStreams {
		if !slices.Contains(out.StreamIDs, id) {
			out.StreamIDs = append(out.StreamIDs, id)
		}
	}
	if len(ops.RemoveStreams) > 0 {
		out.StreamIDs = slices.DeleteFunc(out.StreamIDs, func(id string) bool {
			return slices.Contains(ops.RemoveStreams, id)
		})
	}
	if len(out.StreamIDs) == 0 {
		return nil, errors.NewInvalidRequestStructure("an event needs at least one stream id")
	}
	return out, nil
}

func setField(e *types.Event, field string, value any) error {
	switch field {
	case "type":
		s, ok := value.(string)
		if !ok {
			return errors.NewInvalidRequestStructure("field %q takes a string", field)
		}
		e.Type = s
	case "content":
		e.Content = value
	case "time":
		f, ok := value.(float64)
		if !ok {
			return errors.NewInvalidRequestStructure("field %q takes a number", field)
		}
		e.Time = f
	case "duration":
		switch v := value.(type) {
		case types.Duration:
			e.Duration = v
		case float64:
			e.Duration = types.DurationOf(v)
		case nil:
			e.Duration = types.RunningDuration()
		default:
			return errors.NewInvalidRequestStructure("field %q takes a duration", field)
		}
	case "trashed":
		b, ok := value.(bool)
		if !ok {
			return errors.NewInvalidRequestStructure("field %q takes a boolean", field)
		}
		e.Trashed = b
	default:
		return errors.NewInvalidRequestStructure("field %q cannot be set", field)
	}
	return nil
}

// UpdateMany applies the operations to every matching event and collects
// the updated events. Writes stop at the first failure; events already
// written stay written and are returned alongside the error.
func (ev *Events) UpdateMany(ctx context.Context, uid string, req queryplan.EventsRequest, ops UpdateOperations, keep func(*types.Event) bool) ([]*types.Event, error) {
	cursor, err := ev.UpdateStreamed(ctx, uid, req, ops, keep)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	updated := []*types.Event{}
	for {
		e, err := cursor.Next(ctx)
		if err != nil {
			return updated, err
		}
		if e == nil {
			return updated, nil
		}
		updated = append(updated, e)
	}
}

// UpdateStreamed applies the operations to matching events one at a time,
// yielding each updated event as its write lands. The optional keep
// predicate narrows the selection beyond what the query expresses.
func (ev *Events) UpdateStreamed(ctx context.Context, uid string, req queryplan.EventsRequest, ops UpdateOperations, keep func(*types.Event) bool) (Cursor, error) {
	source, err := ev.GetStreamed(ctx, uid, req)
	if err != nil {
		return nil, err
	}
	return &updateCursor{ev: ev, uid: uid, source: source, ops: ops, keep: keep}, nil
}

// updateCursor mutates and writes back each event the source yields.
type updateCursor struct {
	ev     *Events
	uid    string
	source Cursor
	ops    UpdateOperations
	keep   func(*types.Event) bool
}

func (c *updateCursor) Next(ctx context.Context) (*types.Event, error) {
	for {
		e, err := c.source.Next(ctx)
		if err != nil || e == nil {
			return nil, err
		}
		if c.keep != nil && !c.keep(e) {
			continue
		}
		mutated, err := c.ops.apply(e)
		if err != nil {
			return nil, err
		}
		return c.ev.Update(ctx, c.uid, mutated)
	}
}

func (c *updateCursor) Close() error {
	return c.source.Close()
}

// Delete removes an event according to the deletion mode and notifies the
// change bus.
func (ev *Events) Delete(ctx context.Context, uid, id string, mode DeletionMode) error {
	ref := storeid.Decode(id)
	done := ev.m.instrument("events", "delete", ref.Store)
	err := ev.delete(ctx, uid, ref, mode)
	done(err)
	if err == nil {
		ev.m.notifyChange(uid, id, natsclient.ActionDeleted)
	}
	return err
}

func (ev *Events) delete(ctx context.Context, uid string, ref storeid.Ref, mode DeletionMode) error {
	backend, err := ev.m.storeFor(ref.Store)
	if err != nil {
		return err
	}

	existing, err := ev.loadCanonical(ctx, uid, backend, ref)
	if err != nil {
		return err
	}
	now := nowSeconds()
	existing.Deleted = &now
	existing.Modified = now
	switch mode {
	case ModeKeepAuthors:
		existing.Content = nil
		existing.Attachments = nil
		existing.Integrity = ""
	case ModeKeepNothing:
		// Only the id and the deletion timestamp survive.
		existing = &store.Event{ID: existing.ID, Deleted: &now, Modified: now}
	}
	if _, err := backend.Events().Update(ctx, uid, existing); err != nil {
		return errors.WrapStore(err, ref.Store, "mall", "Events.Delete")
	}
	return nil
}

// loadCanonical fetches one event in its store shape regardless of state.
func (ev *Events) loadCanonical(ctx context.Context, uid string, backend store.Store, ref storeid.Ref) (*store.Event, error) {
	matches, err := backend.Events().Get(ctx, uid, store.EventsQuery{ID: ref.ID, State: store.StateAll, Limit: 1})
	if err != nil {
		return nil, errors.WrapStore(err, ref.Store, "mall", "Events.Get")
	}
	if len(matches) == 0 {
		return nil, errors.NewUnknownResource("event", ref.Encode())
	}
	return matches[0], nil
}

// SaveAttachedFiles stores files with an event and returns the attachment
// records.
func (ev *Events) SaveAttachedFiles(ctx context.Context, uid, eventID string, files []store.AttachedFile) ([]store.Attachment, error) {
	ref := storeid.Decode(eventID)
	done := ev.m.instrument("events", "saveAttachments", ref.Store)

	backend, err := ev.m.storeFor(ref.Store)
	if err != nil {
		done(err)
		return nil, err
	}
	saved, err := backend.Events().SaveAttachedFiles(ctx, uid, ref.ID, files)
	if err != nil {
		err = errors.WrapStore(err, ref.Store, "mall", "Events.SaveAttachedFiles")
		done(err)
		return nil, err
	}
	done(nil)
	ev.m.notifyChange(uid, eventID, natsclient.ActionUpdated)
	return saved, nil
}

// GetAttachedFile opens one attached file for reading.
func (ev *Events) GetAttachedFile(ctx context.Context, uid, eventID, fileID string) (io.ReadCloser, error) {
	ref := storeid.Decode(eventID)
	backend, err := ev.m.storeFor(ref.Store)
	if err != nil {
		return nil, err
	}
	rc, err := backend.Events().GetAttachedFile(ctx, uid, ref.ID, fileID)
	if err != nil {
		return nil, errors.WrapStore(err, ref.Store, "mall", "Events.GetAttachedFile")
	}
	return rc, nil
}

// DeleteAttachedFile removes one attached file and returns the updated
// event.
func (ev *Events) DeleteAttachedFile(ctx context.Context, uid, eventID, fileID string) (*types.Event, error) {
	ref := storeid.Decode(eventID)
	backend, err := ev.m.storeFor(ref.Store)
	if err != nil {
		return nil, err
	}
	updated, err := backend.Events().DeleteAttachedFile(ctx, uid, ref.ID, fileID)
	if err != nil {
		return nil, errors.WrapStore(err, ref.Store, "mall", "Events.DeleteAttachedFile")
	}
	ev.m.notifyChange(uid, eventID, natsclient.ActionUpdated)
	return ev.m.tr.EventFromStore(ref.Store, updated)
}

// storeCursor adapts one store's cursor to the wire shape.
type storeCursor struct {
	inner   store.EventsCursor
	storeID string
	tr      *transform.Transformer
}

func (c *storeCursor) Next(ctx context.Context) (*types.Event, error) {
	e, err := c.inner.Next(ctx)
	if err != nil || e == nil {
		return nil, err
	}
	return c.tr.EventFromStore(c.storeID, e)
}

func (c *storeCursor) Close() error {
	return c.inner.Close()
}

// sliceCursor walks a pre-merged result set.
type sliceCursor struct {
	events []*types.Event
	next   int
}

func (c *sliceCursor) Next(ctx context.Context) (*types.Event, error) {
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
