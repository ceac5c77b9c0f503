// Package metric wraps Prometheus registration for the data mall.
//
// A MetricsRegistry owns one Prometheus registry plus the core platform
// metrics (mall operations, cache behaviour, notification bus status).
// Components register additional collectors under a "component.metric" key so
// duplicate registrations are caught early and unregistration at shutdown is
// uniform.
//
// The registry is constructed once in cmd wiring and passed by reference;
// nothing in this package is a process-wide global.
package metric
