package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())

	// Core metrics are usable immediately.
	registry.CoreMetrics().RecordOperation("events", "get", "local")
	registry.CoreMetrics().RecordOperationError("events", "get", "unknown-resource")
}

func TestRegisterAndUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test",
	})

	require.NoError(t, registry.RegisterCounter("metacache", "loads", counter))

	// Duplicate keys are rejected.
	err := registry.RegisterCounter("metacache", "loads", counter)
	assert.Error(t, err)

	assert.True(t, registry.Unregister("metacache", "loads"))
	assert.False(t, registry.Unregister("metacache", "loads"))

	// After unregistration the key is free again.
	assert.NoError(t, registry.RegisterCounter("metacache", "loads", counter))
}
