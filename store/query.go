package store

// State selects which soft-deletion/trash population a query addresses.
type State string

// Query states. Default excludes trashed and deleted items, All discloses
// both, Trashed isolates trashed-but-not-deleted items.
const (
	StateDefault State = "default"
	StateTrashed State = "trashed"
	StateAll     State = "all"
)

// StreamQueryNode is one expression over store-local stream ids: an event
// matches the node when it is in any of Any, in every one of And, and in
// none of Not. Empty lists are no constraint.
type StreamQueryNode struct {
	Any []string
	And []string
	Not []string
}

// EventsQuery is a store-local event filter. Zero values mean "no
// constraint"; pointer fields distinguish unset from zero.
type EventsQuery struct {
	ID     string
	HeadID string

	Streams []StreamQueryNode
	State   State
	Types   []string

	// Time-window semantics: a completed event matches when [Time, EndTime]
	// overlaps [FromTime, ToTime]; a running event matches windows that
	// include now. ToTime alone bounds Time.
	FromTime *float64
	ToTime   *float64

	// ModifiedSince filters on Modified, strictly greater.
	ModifiedSince *float64

	// Running, when set, restricts to events with (or without) an end time.
	Running *bool

	Limit         int
	Skip          int
	SortAscending bool
}

// StreamsQuery is a store-local stream filter.
type StreamsQuery struct {
	// ID restricts to one stream subtree; the root marker addresses the
	// whole store.
	ID string

	State State

	// ExcludeIDs removes subtrees from the result. Stores without native
	// support may ignore it; the aggregation layer then applies it locally.
	ExcludeIDs []string
}

// Capabilities advertises optional store features to the aggregation layer.
type Capabilities struct {
	// NativeExcludeIDs is set when Streams.Get honors StreamsQuery.ExcludeIDs.
	NativeExcludeIDs bool
}
