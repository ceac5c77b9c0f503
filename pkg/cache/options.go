package cache

import (
	"time"

	"github.com/c360/datamall/metric"
)

// Option configures cache behaviour using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
type cacheOptions[V any] struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	evictCallback EvictCallback[V]
	maxEntries    int
}

// WithMetrics enables Prometheus export of cache statistics. The prefix is
// used as the component label. A nil registry or empty prefix is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked for every evicted entry.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithMaxEntries bounds the number of entries. Inserting into a full cache
// evicts the entry closest to expiry. Zero or negative means unbounded.
func WithMaxEntries[V any](max int) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.maxEntries = max
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}

// defaultCleanupInterval is used when callers pass a non-positive interval.
const defaultCleanupInterval = 30 * time.Second
