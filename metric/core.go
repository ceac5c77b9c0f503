package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core platform metrics shared by all components.
type Metrics struct {
	// Aggregation layer
	OperationsTotal   *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Series engine
	SeriesPointsWritten prometheus.Counter
	SeriesBatchesTotal  prometheus.Counter

	// Metadata cache
	CacheInvalidations prometheus.Counter

	// Notification bus
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the core metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datamall",
				Subsystem: "mall",
				Name:      "operations_total",
				Help:      "Total number of aggregation operations",
			},
			[]string{"entity", "operation", "store"},
		),

		OperationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datamall",
				Subsystem: "mall",
				Name:      "operation_errors_total",
				Help:      "Total number of failed aggregation operations by error id",
			},
			[]string{"entity", "operation", "error"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "datamall",
				Subsystem: "mall",
				Name:      "operation_duration_seconds",
				Help:      "Aggregation operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),

		SeriesPointsWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datamall",
				Subsystem: "series",
				Name:      "points_written_total",
				Help:      "Total number of series points written to the backend",
			},
		),

		SeriesBatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datamall",
				Subsystem: "series",
				Name:      "batches_total",
				Help:      "Total number of series batch requests stored",
			},
		),

		CacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datamall",
				Subsystem: "cache",
				Name:      "invalidations_total",
				Help:      "Total number of cache invalidation notifications applied",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "datamall",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datamall",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// register registers every core metric with the given registry.
func (m *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		m.OperationsTotal,
		m.OperationErrors,
		m.OperationDuration,
		m.SeriesPointsWritten,
		m.SeriesBatchesTotal,
		m.CacheInvalidations,
		m.NATSConnected,
		m.NATSReconnects,
	)
}

// RecordOperation increments the operation counter.
func (m *Metrics) RecordOperation(entity, operation, store string) {
	m.OperationsTotal.WithLabelValues(entity, operation, store).Inc()
}

// RecordOperationError increments the error counter for an error id.
func (m *Metrics) RecordOperationError(entity, operation, errorID string) {
	m.OperationErrors.WithLabelValues(entity, operation, errorID).Inc()
}

// ObserveOperationDuration records an operation duration.
func (m *Metrics) ObserveOperationDuration(entity, operation string, d time.Duration) {
	m.OperationDuration.WithLabelValues(entity, operation).Observe(d.Seconds())
}
