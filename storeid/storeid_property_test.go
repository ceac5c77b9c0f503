package storeid

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_RoundTrip validates that Decode and Encode are inverse for
// every identifier the codec itself can produce, local and named alike.
func TestProperty_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// In-store ids are free-form except that a bare id may not start with the
	// namespace marker (that is by definition the wrapped form).
	innerID := gen.RegexMatch(`[a-z0-9][a-z0-9:-]{0,24}`)
	storeName := gen.RegexMatch(`[a-z][a-z0-9]{0,11}`).SuchThat(func(s string) bool {
		return !reservedLocal[s] && s != Local
	})

	properties.Property("local ids survive the round trip", prop.ForAll(
		func(id string) bool {
			return Decode(id).Encode() == id
		},
		innerID,
	))

	properties.Property("named ids survive the round trip", prop.ForAll(
		func(store, id string) bool {
			wire := NamedRef(store, id).Encode()
			ref := Decode(wire)
			return ref.Store == store && ref.ID == id && ref.Encode() == wire
		},
		storeName,
		innerID,
	))

	properties.Property("encode of decode is the identity on wrapped roots", prop.ForAll(
		func(store string) bool {
			wire := ":" + store + ":"
			return Decode(wire).Encode() == wire
		},
		storeName,
	))

	properties.TestingRun(t)
}
