// Package datamall aggregates per-user streams and events across pluggable
// backend stores and routes high-frequency series data to a columnar backend.
//
// # Architecture
//
// The platform splits storage into two planes:
//
// Document plane (streams, events, attachments):
//   - store: the backend contract and canonical data model
//   - store/sqlite: the default "local" document store
//   - store/memstore: an in-memory store for tests and ephemeral backends
//   - queryplan: splits one logical query into per-store plans
//   - mall: fans plans out to stores, merges and pages the results
//   - transform: wire/canonical conversion, duration duality, integrity digests
//
// Series plane (fixed-shape, high-frequency points):
//   - series: flat-JSON matrix and batch parsing
//   - series/duckdb: the columnar series backend
//   - series/metacache: cached per-credential series metadata
//   - gateway/serieshttp: the HTTP surface for series reads and writes
//
// Cross-cutting infrastructure:
//   - storeid: the ":storeId:itemId" reference codec
//   - eventtypes: the event type catalog and series type adapter
//   - access: credential resolution and stream-level permissions
//   - natsclient: change notifications between the two planes
//   - errors: the structured error taxonomy
//   - metric: Prometheus metrics and the metrics endpoint
//   - config: YAML configuration with validation
//
// # Store namespacing
//
// Every stream and event carries namespaced ids of the form ":storeId:itemId".
// The default store is "local"; its item ids stay bare on the wire. A query
// against the root pseudo-stream "*" fans out to every registered store, and
// each named store surfaces as a pseudo-stream ":storeId:" at the top of the
// forest.
//
// # Usage
//
//	m := mall.New(mall.WithTransformer(transform.New()))
//	_ = m.AddStore(localStore)
//	_ = m.AddStore(memstore.New("audit", "Audit trail"))
//	_ = m.Init()
//
//	events, err := m.Events().Get(ctx, uid, queryplan.EventsRequest{
//		Streams: []store.StreamQueryNode{{Any: []string{"*"}}},
//		Limit:   20,
//	})
//
// Series writes go through gateway/serieshttp, which resolves the target
// event through series/metacache before handing points to the backend.
package datamall
