// Package storeid encodes and decodes namespaced item identifiers.
//
// An external identifier is either bare, which implicitly belongs to the
// local store, or wrapped as ":storeId:itemId" for items living in another
// registered store. The root pseudo-item of a store has an empty in-store id,
// represented internally by the "*" marker.
//
// The codec lives only at the system boundary: internal code passes Ref
// values around and never parses the string form again. Decode never fails;
// malformed input (an unterminated marker) decodes as a local id holding the
// literal string, and validation of store ids happens at the aggregation
// boundary instead.
//
// Round-trip invariant: Decode(x).Encode() == x for every well-formed x.
package storeid
