package transform

import (
	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
	"github.com/c360/datamall/types"
)

// EventToStore converts a wire event to its canonical store shape and
// returns the store it belongs to. The event id and every stream id must
// resolve to the same store. A new event with an empty id takes its store
// from its stream ids.
func (t *Transformer) EventToStore(e *types.Event) (string, *store.Event, error) {
	storeID, streamIDs, err := resolveStore(e.StreamIDs)
	if err != nil {
		return "", nil, err
	}

	localID := e.ID
	if e.ID != "" {
		ref := storeid.Decode(e.ID)
		if len(e.StreamIDs) > 0 && ref.Store != storeID {
			return "", nil, errors.NewInvalidRequestStructure(
				"event %q does not belong to store %q", e.ID, storeID)
		}
		storeID = ref.Store
		localID = ref.ID
	}

	out := &store.Event{
		ID:          localID,
		StreamIDs:   streamIDs,
		Time:        e.Time,
		EndTime:     endTimeOf(e.Time, e.Duration),
		Type:        e.Type,
		Content:     e.Content,
		Trashed:     e.Trashed,
		Deleted:     copyFloat(e.Deleted),
		Attachments: append([]store.Attachment(nil), e.Attachments...),
		Created:     e.Created,
		CreatedBy:   e.CreatedBy,
		Modified:    e.Modified,
		ModifiedBy:  e.ModifiedBy,
	}

	if t.integrityActive {
		digest, err := ComputeEventIntegrity(out)
		if err != nil {
			return "", nil, errors.Wrap(err, "transform", "EventToStore", "compute integrity")
		}
		out.Integrity = digest
	}
	return storeID, out, nil
}

// EventFromStore converts a canonical event back to its wire shape,
// qualifying ids with the store namespace. With read verification on, a
// stored digest that no longer matches the event fails the conversion.
func (t *Transformer) EventFromStore(storeID string, e *store.Event) (*types.Event, error) {
	if t.verifyOnRead && e.Integrity != "" {
		if err := VerifyEventIntegrity(e); err != nil {
			return nil, err
		}
	}

	streamIDs := make([]string, len(e.StreamIDs))
	for i, id := range e.StreamIDs {
		streamIDs[i] = storeid.EncodeIn(storeID, id)
	}

	out := &types.Event{
		ID:         storeid.EncodeIn(storeID, e.ID),
		StreamIDs:  streamIDs,
		Time:       e.Time,
		Duration:   durationOf(e.Time, e.EndTime),
		Type:       e.Type,
		Content:    e.Content,
		Trashed:    e.Trashed,
		Deleted:    copyFloat(e.Deleted),
		Integrity:  e.Integrity,
		Created:    e.Created,
		CreatedBy:  e.CreatedBy,
		Modified:   e.Modified,
		ModifiedBy: e.ModifiedBy,
	}
	if len(e.Attachments) > 0 {
		out.Attachments = append([]store.Attachment(nil), e.Attachments...)
	}
	return out, nil
}

// endTimeOf folds the external duration into the canonical end time: absent
// means the event ends at its own time, null means it is still running.
func endTimeOf(start float64, d types.Duration) *float64 {
	switch {
	case !d.Set:
		end := start
		return &end
	case d.Value == nil:
		return nil
	default:
		end := start + *d.Value
		return &end
	}
}

// durationOf is the inverse of endTimeOf. An end time equal to the start
// collapses back to the absent state.
func durationOf(start float64, end *float64) types.Duration {
	switch {
	case end == nil:
		return types.RunningDuration()
	case *end == start:
		return types.NoDuration()
	default:
		return types.DurationOf(*end - start)
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}
