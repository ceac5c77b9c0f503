// Package config loads and validates the platform configuration.
//
// Configuration lives in one YAML file describing the registered stores,
// the series backend, the change bus, caching and the HTTP surface.
// Defaults are applied on load; Validate rejects configurations the
// platform cannot start with.
package config
