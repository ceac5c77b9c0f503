package transform

import (
	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/storeid"
)

// Transformer converts events and streams between their wire and store
// shapes. The zero value converts without touching integrity digests.
type Transformer struct {
	integrityActive bool
	verifyOnRead    bool
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithIntegrity enables digest computation on the write path.
func WithIntegrity(active bool) Option {
	return func(t *Transformer) {
		t.integrityActive = active
	}
}

// WithReadVerification enables digest verification on the read path. Events
// carrying no digest pass unchecked.
func WithReadVerification(on bool) Option {
	return func(t *Transformer) {
		t.verifyOnRead = on
	}
}

// New returns a Transformer with the given options applied.
func New(opts ...Option) *Transformer {
	t := &Transformer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// resolveStore decodes a set of namespaced ids that must all live in the
// same store and returns that store with the store-local ids. A mix of
// stores is a malformed request.
func resolveStore(ids []string) (string, []string, error) {
	if len(ids) == 0 {
		return storeid.Local, nil, nil
	}
	first := storeid.Decode(ids[0])
	local := make([]string, len(ids))
	local[0] = first.ID
	for i, id := range ids[1:] {
		ref := storeid.Decode(id)
		if ref.Store != first.Store {
			return "", nil, errors.NewInvalidRequestStructure(
				"cannot mix identifiers from multiple stores").
				WithData(map[string]any{
					"storeIds": []string{first.Store, ref.Store},
				})
		}
		local[i+1] = ref.ID
	}
	return first.Store, local, nil
}
