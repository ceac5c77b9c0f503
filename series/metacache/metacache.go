package metacache

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/c360/datamall/access"
	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/eventtypes"
	"github.com/c360/datamall/metric"
	"github.com/c360/datamall/natsclient"
	"github.com/c360/datamall/pkg/cache"
	"github.com/c360/datamall/series"
	"github.com/c360/datamall/types"
)

// SeriesMeta is the cached answer for one (user, event, credential) triple.
type SeriesMeta struct {
	CanRead  bool
	CanWrite bool

	// TypeName is the full series type name, e.g. "series:mass/kg".
	TypeName string

	// Namespace and Measurement locate the event's points in the series
	// backend.
	Namespace   string
	Measurement string
}

// EventLoader fetches one event in its wire shape.
type EventLoader interface {
	LoadEvent(ctx context.Context, uid, eventID string) (*types.Event, error)
}

// Config wires the cache's collaborators.
type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxEntries      int

	Resolver access.Resolver
	Events   EventLoader
	Types    *eventtypes.Repository

	// Backend, when set, has measurements dropped on event deletion.
	Backend series.Backend

	Logger   *slog.Logger
	Metrics  *metric.Metrics
	Registry *metric.MetricsRegistry
}

// Cache is the series metadata cache.
type Cache struct {
	entries cache.Cache[SeriesMeta]

	mu    sync.Mutex
	index map[string][]string // user+event -> cached credential keys

	resolver access.Resolver
	events   EventLoader
	types    *eventtypes.Repository
	backend  series.Backend

	logger  *slog.Logger
	metrics *metric.Metrics
}

// New builds the cache. Resolver, Events and Types are required.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Resolver == nil || cfg.Events == nil || cfg.Types == nil {
		return nil, errors.New(errors.IDUnexpectedError,
			"metacache requires a resolver, an event loader and a type repository")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Cache{
		index:    map[string][]string{},
		resolver: cfg.Resolver,
		events:   cfg.Events,
		types:    cfg.Types,
		backend:  cfg.Backend,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}

	// The index must shrink with the cache, or expired entries would pin
	// their keys forever.
	opts := []cache.Option[SeriesMeta]{
		cache.WithEvictionCallback[SeriesMeta](func(key string, _ SeriesMeta) {
			c.unindex(key)
		}),
	}
	if cfg.MaxEntries > 0 {
		opts = append(opts, cache.WithMaxEntries[SeriesMeta](cfg.MaxEntries))
	}
	if cfg.Registry != nil {
		opts = append(opts, cache.WithMetrics[SeriesMeta](cfg.Registry, "series_meta"))
	}

	entries, err := cache.NewTTL(ctx, cfg.TTL, cfg.CleanupInterval, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "metacache", "New", "create cache")
	}
	c.entries = entries
	return c, nil
}

// Close stops the underlying cache.
func (c *Cache) Close() error {
	return c.entries.Close()
}

// Lookup returns the metadata for the triple, loading and caching it on a
// miss. Two concurrent misses may both load; the second Set wins, which is
// harmless since both computed the same answer.
func (c *Cache) Lookup(ctx context.Context, uid, eventID, credential string) (SeriesMeta, error) {
	key := cacheKey(uid, eventID, credential)
	if meta, ok := c.entries.Get(key); ok {
		return meta, nil
	}

	meta, err := c.load(ctx, uid, eventID, credential)
	if err != nil {
		return SeriesMeta{}, err
	}

	if _, err := c.entries.Set(key, meta); err != nil {
		c.logger.Warn("series meta not cached", "error", err)
		return meta, nil
	}
	idx := indexKey(uid, eventID)
	c.mu.Lock()
	if !slices.Contains(c.index[idx], key) {
		c.index[idx] = append(c.index[idx], key)
	}
	c.mu.Unlock()
	return meta, nil
}

// load computes the metadata from scratch.
func (c *Cache) load(ctx context.Context, uid, eventID, credential string) (SeriesMeta, error) {
	acc, err := c.resolver.Resolve(ctx, uid, credential)
	if err != nil {
		return SeriesMeta{}, err
	}

	event, err := c.events.LoadEvent(ctx, uid, eventID)
	if err != nil {
		return SeriesMeta{}, err
	}

	if !eventtypes.IsSeriesName(event.Type) {
		return SeriesMeta{}, errors.NewInvalidOperation(
			"event %q holds no series (type %q)", eventID, event.Type)
	}
	if _, err := c.types.Lookup(event.Type); err != nil {
		return SeriesMeta{}, err
	}

	meta := SeriesMeta{
		TypeName:    event.Type,
		Namespace:   NamespaceFor(uid),
		Measurement: event.ID,
	}
	for _, streamID := range event.StreamIDs {
		if !meta.CanRead && acc.CanReadStream(streamID) {
			meta.CanRead = true
		}
		if !meta.CanWrite && acc.CanWriteStream(streamID) {
			meta.CanWrite = true
		}
		if meta.CanRead && meta.CanWrite {
			break
		}
	}
	return meta, nil
}

// SeriesType resolves the cached type name to its descriptor.
func (c *Cache) SeriesType(meta SeriesMeta) (*eventtypes.SeriesType, error) {
	typ, err := c.types.Lookup(meta.TypeName)
	if err != nil {
		return nil, err
	}
	st, ok := typ.(*eventtypes.SeriesType)
	if !ok {
		return nil, errors.NewInvalidEventType(meta.TypeName)
	}
	return st, nil
}

// Bind subscribes the cache to change notifications.
func (c *Cache) Bind(client *natsclient.Client) error {
	_, err := client.SubscribeChanges(func(change natsclient.Change) {
		c.HandleChange(context.Background(), change)
	})
	if err != nil {
		return errors.Wrap(err, "metacache", "Bind", "subscribe")
	}
	return nil
}

// HandleChange drops the cached entries for the changed event. A deletion
// additionally drops the event's measurement from the series backend.
func (c *Cache) HandleChange(ctx context.Context, change natsclient.Change) {
	c.invalidate(change.User, change.EventID)
	if c.metrics != nil {
		c.metrics.CacheInvalidations.Inc()
	}

	if change.Action == natsclient.ActionDeleted && c.backend != nil {
		if err := c.backend.DropMeasurement(ctx, NamespaceFor(change.User), change.EventID); err != nil {
			c.logger.Error("measurement not dropped after event deletion",
				"user", change.User, "eventId", change.EventID, "error", err)
		}
	}
}

// invalidate removes every credential's entry for the event.
func (c *Cache) invalidate(uid, eventID string) {
	c.mu.Lock()
	keys := c.index[indexKey(uid, eventID)]
	delete(c.index, indexKey(uid, eventID))
	c.mu.Unlock()

	for _, key := range keys {
		if _, err := c.entries.Delete(key); err != nil {
			c.logger.Warn("cache entry not removed", "key", key, "error", err)
		}
	}
}

// unindex drops an evicted cache key from the (user, event) index.
func (c *Cache) unindex(key string) {
	sep := strings.LastIndex(key, "\x00")
	if sep < 0 {
		return
	}
	idx := key[:sep]

	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.index[idx]
	for i, k := range keys {
		if k == key {
			keys = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(keys) == 0 {
		delete(c.index, idx)
	} else {
		c.index[idx] = keys
	}
}

// NamespaceFor returns the series backend namespace of a user.
func NamespaceFor(uid string) string {
	return "u_" + strings.ReplaceAll(uid, "-", "_")
}

func cacheKey(uid, eventID, credential string) string {
	return uid + "\x00" + eventID + "\x00" + credential
}

func indexKey(uid, eventID string) string {
	return uid + "\x00" + eventID
}
