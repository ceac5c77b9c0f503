package store

// Timestamps are Unix epoch seconds with sub-second precision, matching the
// series engine's timestamp column.

// Stream is the canonical, store-local shape of a stream node.
type Stream struct {
	ID       string
	ParentID *string // nil at the store root
	Name     string
	Trashed  bool
	Deleted  *float64 // soft-deletion timestamp, nil when live

	Created    float64
	CreatedBy  string
	Modified   float64
	ModifiedBy string

	Children []*Stream
}

// Clone returns a deep copy of the stream and its children.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	dup := *s
	if s.ParentID != nil {
		parent := *s.ParentID
		dup.ParentID = &parent
	}
	if s.Deleted != nil {
		deleted := *s.Deleted
		dup.Deleted = &deleted
	}
	if s.Children != nil {
		dup.Children = make([]*Stream, len(s.Children))
		for i, child := range s.Children {
			dup.Children[i] = child.Clone()
		}
	}
	return &dup
}

// Event is the canonical, store-local shape of an event.
//
// EndTime encodes the duration duality: nil means the event is running, a
// value equal to Time means no duration, anything later means a finished
// event with a duration.
type Event struct {
	ID        string
	StreamIDs []string
	Time      float64
	EndTime   *float64
	Type      string
	Content   any
	Trashed   bool
	Deleted   *float64

	Attachments []Attachment
	Integrity   string

	Created    float64
	CreatedBy  string
	Modified   float64
	ModifiedBy string
}

// Clone returns a deep copy of the event. Content is shared: stores treat it
// as opaque and never mutate it in place.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	dup := *e
	dup.StreamIDs = append([]string(nil), e.StreamIDs...)
	if e.EndTime != nil {
		end := *e.EndTime
		dup.EndTime = &end
	}
	if e.Deleted != nil {
		deleted := *e.Deleted
		dup.Deleted = &deleted
	}
	if e.Attachments != nil {
		dup.Attachments = append([]Attachment(nil), e.Attachments...)
	}
	return &dup
}

// IsRunning reports whether the event has no end time yet.
func (e *Event) IsRunning() bool {
	return e.EndTime == nil
}

// InStream reports whether the event belongs to the given stream.
func (e *Event) InStream(streamID string) bool {
	for _, id := range e.StreamIDs {
		if id == streamID {
			return true
		}
	}
	return false
}

// Attachment describes one file attached to an event.
type Attachment struct {
	ID        string `json:"id"`
	FileName  string `json:"fileName"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	Integrity string `json:"integrity,omitempty"`
}

// StreamDeletion records a past stream deletion for sync purposes.
type StreamDeletion struct {
	ID      string
	Deleted float64
}

// Descriptor identifies a registered backend store. The reserved id "local"
// denotes the default document store.
type Descriptor struct {
	ID       string
	Name     string
	Settings map[string]any
}
