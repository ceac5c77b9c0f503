package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datamall/metric"
)

func newTestCache(t *testing.T, ttl time.Duration, opts ...Option[string]) Cache[string] {
	t.Helper()
	c, err := NewTTL[string](context.Background(), ttl, 10*time.Millisecond, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBasicOperations(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, exists := c.Get("key1")
	assert.False(t, exists)

	isNew, err := c.Set("key1", "value1")
	require.NoError(t, err)
	assert.True(t, isNew)

	value, exists := c.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", value)

	isNew, err = c.Set("key1", "value1-updated")
	require.NoError(t, err)
	assert.False(t, isNew)

	deleted, err := c.Delete("key1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete("key1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestEmptyKeyRejected(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, err := c.Set("", "v")
	assert.Error(t, err)
	_, err = c.Delete("")
	assert.Error(t, err)
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t, 20*time.Millisecond)

	_, err := c.Set("key1", "value1")
	require.NoError(t, err)

	_, exists := c.Get("key1")
	assert.True(t, exists)

	time.Sleep(40 * time.Millisecond)

	_, exists = c.Get("key1")
	assert.False(t, exists, "entry must expire after TTL")
}

func TestBackgroundCleanup(t *testing.T) {
	c := newTestCache(t, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := c.Set(fmt.Sprintf("key%d", i), "v")
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return c.Size() == 0
	}, time.Second, 10*time.Millisecond, "cleanup goroutine collects expired entries")

	assert.GreaterOrEqual(t, c.Stats().Evictions(), int64(5))
}

func TestMaxEntriesBound(t *testing.T) {
	var evictedMu sync.Mutex
	var evicted []string

	c := newTestCache(t, time.Minute,
		WithMaxEntries[string](2),
		WithEvictionCallback[string](func(key string, _ string) {
			evictedMu.Lock()
			evicted = append(evicted, key)
			evictedMu.Unlock()
		}))

	_, err := c.Set("a", "1")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = c.Set("b", "2")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = c.Set("c", "3")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Size(), "cache never exceeds its bound")

	evictedMu.Lock()
	defer evictedMu.Unlock()
	require.Len(t, evicted, 1)
	assert.Equal(t, "a", evicted[0], "the entry closest to expiry is evicted")
}

func TestUpdateDoesNotEvict(t *testing.T) {
	c := newTestCache(t, time.Minute, WithMaxEntries[string](2))

	_, err := c.Set("a", "1")
	require.NoError(t, err)
	_, err = c.Set("b", "2")
	require.NoError(t, err)

	// Updating an existing key in a full cache must not evict anyone.
	_, err = c.Set("a", "1-updated")
	require.NoError(t, err)

	_, exists := c.Get("b")
	assert.True(t, exists)
	assert.Equal(t, 2, c.Size())
}

func TestKeysSkipExpired(t *testing.T) {
	c := newTestCache(t, 20*time.Millisecond)

	_, err := c.Set("gone", "v")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.Set("live", "v")
	require.NoError(t, err)

	assert.Equal(t, []string{"live"}, c.Keys())
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, err := c.Set("a", "1")
	require.NoError(t, err)
	_, err = c.Set("b", "2")
	require.NoError(t, err)

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
}

func TestStats(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, err := c.Set("a", "1")
	require.NoError(t, err)

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.Equal(t, int64(1), stats.Sets())
	assert.InDelta(t, 0.666, stats.HitRatio(), 0.01)
}

func TestWithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	c, err := NewTTL[string](context.Background(), time.Minute, time.Second,
		WithMetrics[string](registry, "test-cache"))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Set("a", "1")
	require.NoError(t, err)
	c.Get("a")

	// A second cache with the same prefix collides on registration.
	_, err = NewTTL[string](context.Background(), time.Minute, time.Second,
		WithMetrics[string](registry, "test-cache"))
	assert.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key%d", j%10)
				_, _ = c.Set(key, "v")
				c.Get(key)
				if j%7 == 0 {
					_, _ = c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
