// Package types holds the wire-visible shapes of the data mall: the external
// event and stream forms exchanged with clients, before the transform
// pipeline maps them to each store's canonical shape.
//
// The external event carries a tri-state duration (absent, null, number)
// instead of the store-canonical end time; ids and stream ids are
// namespace-qualified.
package types
