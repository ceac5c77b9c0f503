package cache

import (
	"time"

	"github.com/c360/datamall/errors"
)

// Cache is the generic cache contract, parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the zero value and false on a
	// miss or an expired entry.
	Get(key string) (V, bool)

	// Set stores a value under key. Returns true if a new entry was created,
	// false if an existing one was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns the keys of all live entries.
	Keys() []string

	// Stats returns the cache statistics.
	Stats() *Statistics

	// Close stops the background cleanup goroutine.
	Close() error
}

// EvictCallback is called with the key and value of every evicted entry.
type EvictCallback[V any] func(key string, value V)

// entry is one cached value with its expiry.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *entry[V]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// validateKey rejects keys the cache cannot store.
func validateKey(key string) error {
	if key == "" {
		return errors.Wrap(
			errors.NewInvalidRequestStructure("cache key cannot be empty"),
			"cache", "validateKey", "key validation")
	}
	return nil
}
