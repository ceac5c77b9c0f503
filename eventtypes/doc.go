// Package eventtypes resolves event type names to type descriptors and
// performs coercion and validation of event content against them.
//
// # Type model
//
// A leaf type is either basic (a single "value" field of primitive type) or
// complex (a schema-declared object with required and optional named fields,
// possibly nested). A series type wraps a leaf type for high-frequency
// time-indexed data: it carries the reserved "series:" name prefix, prepends
// a required "timestamp" column, and validates that a submitted column set is
// exactly the required fields plus a subset of the optional ones, each at
// most once.
//
// The Repository owns the in-memory catalog. It is an explicit struct
// constructed once at startup and passed by reference; there is no package
// global. Only the lookup, coercion and validation mechanism lives here: the
// catalog content itself is replaceable, either through the built-in minimal
// catalog or by merging a remotely fetched one with TryUpdate.
//
// # Coercion
//
// Wire values arrive as decoded JSON. Coercion is lenient on representation
// and strict on meaning: numeric strings parse to numbers, booleans accept
// their string forms, anything else fails with an invalid-input-type error
// naming the offending field and value.
package eventtypes
