// Package transform converts between the external, namespace-qualified wire
// shapes and the canonical store-local shapes.
//
// The conversion is where the namespace markers are stripped and re-added,
// where the external duration field is folded into the canonical endTime and
// back, and where event integrity digests are computed and verified. Stores
// never see namespaced identifiers and clients never see endTime.
package transform
