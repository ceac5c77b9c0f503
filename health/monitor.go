package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Probe verifies that one dependency is reachable.
type Probe func(ctx context.Context) error

// Monitor holds named probes and evaluates them on demand.
type Monitor struct {
	mu     sync.RWMutex
	probes map[string]Probe
	order  []string

	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithTimeout bounds each probe evaluation. The default is 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// WithLogger sets the monitor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates an empty monitor.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		probes:  make(map[string]Probe),
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a probe under a name. Registering the same name twice
// replaces the earlier probe.
func (m *Monitor) Register(name string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.probes[name]; !exists {
		m.order = append(m.order, name)
	}
	m.probes[name] = probe
}

// Components lists registered probe names in registration order.
func (m *Monitor) Components() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Check evaluates every probe and returns the aggregate status.
func (m *Monitor) Check(ctx context.Context) Status {
	m.mu.RLock()
	names := append([]string(nil), m.order...)
	probes := make([]Probe, 0, len(names))
	for _, name := range names {
		probes = append(probes, m.probes[name])
	}
	m.mu.RUnlock()

	subStatuses := make([]Status, 0, len(names))
	for i, name := range names {
		subStatuses = append(subStatuses, m.run(ctx, name, probes[i]))
	}
	return Aggregate("datamall", subStatuses)
}

func (m *Monitor) run(ctx context.Context, name string, probe Probe) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := probe(ctx); err != nil {
		m.logger.Warn("health probe failed", "component", name, "error", err)
		return NewUnhealthy(name, err.Error())
	}
	return NewHealthy(name, "")
}

// Handler serves the aggregate status as JSON. A failing probe turns
// the response into 503.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := m.Check(r.Context())

		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			m.logger.Warn("health response encoding failed", "error", err)
		}
	})
}
