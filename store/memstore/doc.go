// Package memstore provides a complete in-memory store backend.
//
// It keeps per-user streams, events, deletions and attached files in maps
// guarded by a single read-write mutex. It backs the fast ephemeral store
// configurations and the aggregation layer's test suites.
package memstore
