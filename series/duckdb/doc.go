// Package duckdb implements the series.Backend contract on DuckDB.
//
// Mapping: a storage namespace becomes a DuckDB schema, a measurement becomes
// a table inside it with a numeric timestamp column and a JSON document
// holding the remaining columns. The layout keeps the backend agnostic of the
// per-type column set: the series engine validates and coerces cells before
// they reach this package, and reconstructs matrices from the stored
// documents on the way out.
//
// All operations are thin, logged wrappers around SQL statements. Errors are
// propagated unchanged; remapping to the platform taxonomy happens in the
// aggregation layer.
package duckdb
