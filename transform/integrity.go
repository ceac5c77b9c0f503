package transform

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
)

// integrityPrefix marks the digest algorithm, subresource-integrity style.
const integrityPrefix = "sha256-"

// integrityPayload is the canonical digest input. Field order is fixed and
// the stored digest itself is excluded. Map-valued content serializes with
// sorted keys, so the encoding is deterministic.
type integrityPayload struct {
	ID          string             `json:"id"`
	StreamIDs   []string           `json:"streamIds"`
	Time        float64            `json:"time"`
	EndTime     *float64           `json:"endTime"`
	Type        string             `json:"type"`
	Content     any                `json:"content"`
	Trashed     bool               `json:"trashed"`
	Deleted     *float64           `json:"deleted"`
	Attachments []store.Attachment `json:"attachments,omitempty"`
	Created     float64            `json:"created"`
	CreatedBy   string             `json:"createdBy"`
	Modified    float64            `json:"modified"`
	ModifiedBy  string             `json:"modifiedBy"`
}

// ComputeEventIntegrity returns the digest of the event's canonical form.
func ComputeEventIntegrity(e *store.Event) (string, error) {
	payload := integrityPayload{
		ID:          e.ID,
		StreamIDs:   e.StreamIDs,
		Time:        e.Time,
		EndTime:     e.EndTime,
		Type:        e.Type,
		Content:     e.Content,
		Trashed:     e.Trashed,
		Deleted:     e.Deleted,
		Attachments: e.Attachments,
		Created:     e.Created,
		CreatedBy:   e.CreatedBy,
		Modified:    e.Modified,
		ModifiedBy:  e.ModifiedBy,
	}
	doc, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(doc)
	return integrityPrefix + base64.StdEncoding.EncodeToString(sum[:]), nil
}

// VerifyEventIntegrity recomputes the event's digest and compares it to the
// stored one. Events without a digest pass.
func VerifyEventIntegrity(e *store.Event) error {
	if e.Integrity == "" {
		return nil
	}
	digest, err := ComputeEventIntegrity(e)
	if err != nil {
		return errors.Wrap(err, "transform", "VerifyEventIntegrity", "compute digest")
	}
	if digest != e.Integrity {
		return errors.New(errors.IDUnexpectedError, "event integrity digest mismatch").
			WithData(map[string]any{
				"eventId":  e.ID,
				"stored":   e.Integrity,
				"computed": digest,
			})
	}
	return nil
}
