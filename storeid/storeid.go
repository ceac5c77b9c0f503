package storeid

import "strings"

// Local is the reserved identifier of the default document store.
const Local = "local"

// Root is the in-store id of a store's synthetic root item.
const Root = "*"

// marker separates the store id from the in-store id in the wire form.
const marker = ":"

// reservedLocal lists store names that are never store-qualified. Legacy ids
// such as ":system:measurement" predate the namespace scheme and must keep
// decoding as plain local identifiers.
var reservedLocal = map[string]bool{
	"system":  true,
	"_system": true,
}

// Ref is the decoded form of a namespaced identifier: a tagged union of a
// local id and a (store, id) pair. The zero value is the local root.
type Ref struct {
	Store string // store id, Local for the default store
	ID    string // in-store id, Root for a store's synthetic root
}

// LocalRef returns a Ref for an item in the local store.
func LocalRef(id string) Ref {
	return Ref{Store: Local, ID: id}
}

// NamedRef returns a Ref for an item in the given store.
func NamedRef(store, id string) Ref {
	return Ref{Store: store, ID: id}
}

// Decode parses an external identifier into its Ref form.
//
// Bare ids decode as local. Ids wrapped with the namespace marker decode to
// the named store, except for the reserved legacy names which stay local with
// their literal string. An unterminated marker also decodes as a local
// literal: the codec does not validate, the aggregation boundary does.
func Decode(id string) Ref {
	if !strings.HasPrefix(id, marker) {
		return Ref{Store: Local, ID: id}
	}

	end := strings.Index(id[1:], marker)
	if end < 0 {
		// Unterminated marker, keep the literal.
		return Ref{Store: Local, ID: id}
	}

	store := id[1 : 1+end]
	if store == "" || reservedLocal[store] {
		return Ref{Store: Local, ID: id}
	}

	inner := id[2+end:]
	if inner == "" {
		inner = Root
	}
	return Ref{Store: store, ID: inner}
}

// Encode returns the external string form of the reference. Local references
// encode as their bare id; named references wrap as ":storeId:itemId" with
// the root marker collapsing to an empty in-store id.
func (r Ref) Encode() string {
	if r.Store == Local || r.Store == "" {
		return r.ID
	}
	inner := r.ID
	if inner == Root {
		inner = ""
	}
	return marker + r.Store + marker + inner
}

// IsLocal reports whether the reference lives in the default store.
func (r Ref) IsLocal() bool {
	return r.Store == Local || r.Store == ""
}

// IsRoot reports whether the reference designates a store's synthetic root.
func (r Ref) IsRoot() bool {
	return r.ID == Root
}

// In returns a reference to id inside the same store as r.
func (r Ref) In(id string) Ref {
	return Ref{Store: r.Store, ID: id}
}

// EncodeIn qualifies a store-local id with the given store and returns the
// external string form. It is the common path when converting store results
// back to the wire shape.
func EncodeIn(store, id string) string {
	return Ref{Store: store, ID: id}.Encode()
}
