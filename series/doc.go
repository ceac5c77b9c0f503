// Package series implements the high-frequency time-series engine: the
// tabular in-memory representation of series data, wire-format parsing, batch
// grouping by storage namespace, and the client contract for the physical
// time-series backend.
//
// # Wire formats
//
// Two envelopes are accepted at the boundary:
//
//	flatJSON:    { "format": "flatJSON", "fields": [...], "points": [[...], ...] }
//	seriesBatch: { "format": "seriesBatch", "data": [ {"eventId": ..., "data": <flatJSON>}, ... ] }
//
// Parsing is all-or-nothing: any malformed envelope, wrong column set, ragged
// row or uncoercible cell aborts the whole unit with a parse-failure error.
// There is no partially parsed matrix and no partially parsed batch.
//
// # Backend
//
// The Backend interface is a thin contract over the physical time-series
// store: one database per storage namespace, one measurement per event.
// Implementations log each call and propagate backend errors unchanged; the
// aggregation layer above remaps them. See the duckdb subpackage for the
// shipped implementation.
package series
