// Package metacache answers series ingestion questions without hitting the
// document stores on every point batch.
//
// For a (user, event, credential) triple it caches whether the credential
// may read or write the event's series, the series type name and the
// storage namespace. Entries live behind a bounded TTL cache and are
// dropped when a change notification arrives for the event; a deletion also
// drops the measurement from the series backend.
package metacache
