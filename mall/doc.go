// Package mall aggregates the registered backend stores behind one facade.
//
// Callers speak namespace-qualified identifiers and wire shapes; the mall
// plans each call across the targeted stores, fans out concurrently, and
// merges the store-local answers back into one result. Store registration
// happens once at startup; after Init the registry is immutable and all
// facade methods are safe for concurrent use.
//
// Fan-out calls wait for every store. There is no rollback across stores: a
// failure in one store surfaces as the call's error while other stores keep
// whatever they already applied.
package mall
