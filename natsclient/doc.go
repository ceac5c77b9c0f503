// Package natsclient manages the NATS connection carrying change
// notifications between the data mall and its collaborators.
//
// The client wraps connection lifecycle (connect, reconnect, close) with
// structured logging and Prometheus gauges, and exposes typed helpers for
// publishing and subscribing to the data-change subjects consumed by the
// metadata cache. It deliberately stays below JetStream: notifications are
// fire-and-forget, a missed one only costs a cache reload.
package natsclient
