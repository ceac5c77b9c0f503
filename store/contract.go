package store

import (
	"context"
	"io"
)

// Store bundles the capability sets of one registered backend.
type Store interface {
	Descriptor() Descriptor
	Capabilities() Capabilities
	Streams() Streams
	Events() Events
}

// Streams is the per-store stream capability set. All ids are store-local.
type Streams interface {
	// Get returns the stream forest matching the query, children populated
	// recursively.
	Get(ctx context.Context, uid string, q StreamsQuery) ([]*Stream, error)

	// GetOne returns a single stream subtree by id, or an unknown-resource
	// error.
	GetOne(ctx context.Context, uid, id string, q StreamsQuery) (*Stream, error)

	// Create inserts a new stream. Id collisions fail with
	// item-already-exists.
	Create(ctx context.Context, uid string, s *Stream) (*Stream, error)

	// Update replaces the mutable fields of an existing stream.
	Update(ctx context.Context, uid string, s *Stream) (*Stream, error)

	// Delete removes a stream permanently and records a deletion.
	Delete(ctx context.Context, uid, id string) error

	// GetDeletions lists stream deletions at or after since.
	GetDeletions(ctx context.Context, uid string, since float64) ([]*StreamDeletion, error)

	// CreateDeleted records a deletion without a live stream, used when
	// syncing deletions from another replica.
	CreateDeleted(ctx context.Context, uid string, d *StreamDeletion) error
}

// EventsCursor yields matching events one at a time. Next returns (nil, nil)
// once the cursor is exhausted.
type EventsCursor interface {
	Next(ctx context.Context) (*Event, error)
	Close() error
}

// AttachedFile is one file to attach to an event.
type AttachedFile struct {
	FileName string
	Type     string
	Size     int64
	Reader   io.Reader
}

// Events is the per-store event capability set. All ids are store-local.
type Events interface {
	// Get returns the events matching the query, newest first unless the
	// query asks for ascending order.
	Get(ctx context.Context, uid string, q EventsQuery) ([]*Event, error)

	// GetStreamed returns a cursor over the matching events.
	GetStreamed(ctx context.Context, uid string, q EventsQuery) (EventsCursor, error)

	// Create inserts a new event. Id collisions fail with
	// item-already-exists.
	Create(ctx context.Context, uid string, e *Event) (*Event, error)

	// Update replaces an existing event. A missing target fails with
	// invalid-item-id.
	Update(ctx context.Context, uid string, e *Event) (*Event, error)

	// Delete removes an event permanently.
	Delete(ctx context.Context, uid, id string) error

	// SaveAttachedFiles stores files for an event and returns the resulting
	// attachment records.
	SaveAttachedFiles(ctx context.Context, uid, eventID string, files []AttachedFile) ([]Attachment, error)

	// GetAttachedFile opens one attached file for reading.
	GetAttachedFile(ctx context.Context, uid, eventID, fileID string) (io.ReadCloser, error)

	// DeleteAttachedFile removes one attached file and returns the updated
	// event.
	DeleteAttachedFile(ctx context.Context, uid, eventID, fileID string) (*Event, error)
}
