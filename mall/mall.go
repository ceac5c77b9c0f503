package mall

import (
	"log/slog"
	"time"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/metric"
	"github.com/c360/datamall/natsclient"
	"github.com/c360/datamall/pkg/timestamp"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
	"github.com/c360/datamall/transform"
)

// Mall is the store aggregation facade.
type Mall struct {
	stores map[string]store.Store
	order  []string

	tr      *transform.Transformer
	logger  *slog.Logger
	metrics *metric.Metrics
	nats    *natsclient.Client

	initialized bool
}

// Option configures a Mall before Init.
type Option func(*Mall)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mall) { m.logger = logger }
}

// WithMetrics enables operation metrics.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Mall) { m.metrics = metrics }
}

// WithTransformer replaces the default transformer, e.g. to enable
// integrity digests or read verification.
func WithTransformer(tr *transform.Transformer) Option {
	return func(m *Mall) { m.tr = tr }
}

// WithChangeNotifier publishes event change notifications through the
// given client after updates and deletions.
func WithChangeNotifier(client *natsclient.Client) Option {
	return func(m *Mall) { m.nats = client }
}

// New returns an empty mall. Register stores with AddStore, then call Init.
func New(opts ...Option) *Mall {
	m := &Mall{
		stores: map[string]store.Store{},
		tr:     transform.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddStore registers a backend store. Registration closes at Init.
func (m *Mall) AddStore(s store.Store) error {
	if m.initialized {
		return errors.NewInvalidOperation("store registry is closed after Init")
	}
	id := s.Descriptor().ID
	if id == "" || id == storeid.Root {
		return errors.NewInvalidRequestStructure("store id %q is not usable", id)
	}
	if _, dup := m.stores[id]; dup {
		return errors.NewItemAlreadyExists("store", map[string]any{"id": id})
	}
	m.stores[id] = s
	m.order = append(m.order, id)
	return nil
}

// Init closes registration. The local document store must be present.
func (m *Mall) Init() error {
	if m.initialized {
		return errors.NewInvalidOperation("mall is already initialized")
	}
	if _, ok := m.stores[storeid.Local]; !ok {
		return errors.NewInvalidOperation("the %q store must be registered", storeid.Local)
	}
	m.initialized = true
	m.logger.Info("store mall initialized", "stores", m.order)
	return nil
}

// StoreIDs returns the registered store ids in registration order.
func (m *Mall) StoreIDs() []string {
	return append([]string(nil), m.order...)
}

// Descriptors returns the registered store descriptors in registration
// order.
func (m *Mall) Descriptors() []store.Descriptor {
	out := make([]store.Descriptor, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.stores[id].Descriptor())
	}
	return out
}

// Streams returns the stream facade.
func (m *Mall) Streams() *Streams {
	return &Streams{m: m}
}

// Events returns the event facade.
func (m *Mall) Events() *Events {
	return &Events{m: m}
}

// storeFor resolves a store id to its registered store.
func (m *Mall) storeFor(id string) (store.Store, error) {
	s, ok := m.stores[id]
	if !ok {
		return nil, errors.NewUnknownResource("store", id)
	}
	return s, nil
}

// instrument records one operation's metrics and returns the completion
// hook to defer.
func (m *Mall) instrument(entity, operation, storeID string) func(err error) {
	if m.metrics == nil {
		return func(error) {}
	}
	start := time.Now()
	m.metrics.RecordOperation(entity, operation, storeID)
	return func(err error) {
		m.metrics.ObserveOperationDuration(entity, operation, time.Since(start))
		if err != nil {
			m.metrics.RecordOperationError(entity, operation, string(errors.IDOf(err)))
		}
	}
}

// notifyChange publishes an event change, logging instead of failing the
// operation when the bus is unreachable.
func (m *Mall) notifyChange(uid, eventID string, action natsclient.ChangeAction) {
	if m.nats == nil {
		return
	}
	err := m.nats.PublishChange(natsclient.Change{User: uid, EventID: eventID, Action: action})
	if err != nil {
		m.logger.Warn("change notification not published",
			"user", uid, "eventId", eventID, "action", action, "error", err)
	}
}

// nowSeconds is the audit timestamp source.
func nowSeconds() float64 {
	return timestamp.Now()
}
