// Package cache provides a generic, thread-safe cache with combined
// time-to-live and bounded-size eviction.
//
// Entries expire after a fixed TTL, collected by a background cleanup
// goroutine, and the cache never holds more than its configured maximum
// number of entries: inserting into a full cache evicts the entry closest to
// expiry. Statistics are always collected; Prometheus export is optional via
// functional options.
//
// The metadata cache of the series layer is the primary consumer, but the
// implementation is deliberately domain-free.
package cache
