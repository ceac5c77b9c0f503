// Package health aggregates liveness information for the platform's
// backing services.
//
// A Monitor holds named probes, one per dependency (document stores,
// series backend, change bus). Each probe is a function that verifies
// the dependency is reachable. Probes run on demand when the monitor's
// HTTP handler is hit, and the handler reports the aggregate:
//
//	monitor := health.NewMonitor()
//	monitor.Register("local-store", func(ctx context.Context) error {
//		return localStore.Ping(ctx)
//	})
//	monitor.Register("series-backend", backend.Ping)
//	mux.Handle("GET /healthz", monitor.Handler())
//
// The handler answers 200 when every probe passes and 503 otherwise.
// Probe error messages are sanitized before serialization so DSNs,
// URLs and credentials never leak through the health endpoint.
package health
