// Package access models credentials and their stream-level permissions.
//
// It deliberately stays small: the platform managing accesses is a separate
// system, this package only defines the shape the aggregation layer needs to
// answer "may this credential read or write that event" plus the resolver
// contract for fetching an access by credential.
package access
