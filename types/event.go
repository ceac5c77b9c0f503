package types

import (
	"encoding/json"

	"github.com/c360/datamall/store"
)

// Duration is the tri-state duration of an external event: absent (the event
// ends at its own time), null (the event is running) or a number of seconds.
//
// The zero value is "absent" and serializes to nothing under omitzero.
type Duration struct {
	Set   bool
	Value *float64
}

// NoDuration returns the absent state.
func NoDuration() Duration {
	return Duration{}
}

// RunningDuration returns the null state marking a running event.
func RunningDuration() Duration {
	return Duration{Set: true}
}

// DurationOf returns a concrete duration in seconds.
func DurationOf(seconds float64) Duration {
	return Duration{Set: true, Value: &seconds}
}

// IsZero reports the absent state, hooking into encoding/json's omitzero.
func (d Duration) IsZero() bool {
	return !d.Set
}

// IsRunning reports the null state.
func (d Duration) IsRunning() bool {
	return d.Set && d.Value == nil
}

// MarshalJSON serializes null for the running state and the number
// otherwise. The absent state is handled by omitzero on the holder.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*d.Value)
}

// UnmarshalJSON accepts null or a number. Being called at all means the
// field was present.
func (d *Duration) UnmarshalJSON(data []byte) error {
	d.Set = true
	d.Value = nil
	if string(data) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d.Value = &v
	return nil
}

// Event is the external, wire-visible shape of an event. Ids and stream ids
// are namespace-qualified.
type Event struct {
	ID        string   `json:"id"`
	StreamIDs []string `json:"streamIds"`
	Time      float64  `json:"time"`
	Duration  Duration `json:"duration,omitzero"`
	Type      string   `json:"type"`
	Content   any      `json:"content,omitempty"`
	Trashed   bool     `json:"trashed,omitempty"`
	Deleted   *float64 `json:"deleted,omitempty"`

	Attachments []store.Attachment `json:"attachments,omitempty"`
	Integrity   string             `json:"integrity,omitempty"`

	Created    float64 `json:"created,omitempty"`
	CreatedBy  string  `json:"createdBy,omitempty"`
	Modified   float64 `json:"modified,omitempty"`
	ModifiedBy string  `json:"modifiedBy,omitempty"`
}

// Clone returns a deep copy of the event. Content is shared.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	dup := *e
	dup.StreamIDs = append([]string(nil), e.StreamIDs...)
	if e.Duration.Value != nil {
		v := *e.Duration.Value
		dup.Duration.Value = &v
	}
	if e.Deleted != nil {
		deleted := *e.Deleted
		dup.Deleted = &deleted
	}
	if e.Attachments != nil {
		dup.Attachments = append([]store.Attachment(nil), e.Attachments...)
	}
	return &dup
}
