// Package store defines the pluggable backend contract of the data mall:
// the canonical (store-local) stream and event shapes, the store-local query
// types and the Streams/Events capability sets every registered store
// implements.
//
// Queries and items passed across this contract are already store-local: the
// aggregation layer strips the namespace prefix on the way in and re-adds it
// on the way out, so a store never sees an id belonging to another store.
//
// Each registered store owns its physical data. The shipped implementations
// are sqlite (the "local" document store) and memstore (in-memory, used by
// tests and as an ephemeral store).
package store
