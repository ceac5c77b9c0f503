// Package sqlite provides the default document store backend on SQLite.
//
// Streams and events live in per-user rows of two tables, with event
// content, stream ids and attachment records stored as JSON documents.
// Attached files are kept in a side table as blobs. Structural filters run
// in SQL; stream expressions and type wildcards are applied while scanning.
package sqlite
