package store

import (
	"strings"

	"github.com/c360/datamall/storeid"
)

// MatchesState reports whether the event belongs to the population the
// state selects.
func MatchesState(e *Event, state State) bool {
	switch state {
	case StateAll:
		return true
	case StateTrashed:
		return e.Trashed && e.Deleted == nil
	default:
		return !e.Trashed && e.Deleted == nil
	}
}

// MatchesType checks exact matches and class wildcards such as "mass/*".
func MatchesType(typ string, wanted []string) bool {
	for _, w := range wanted {
		if w == typ {
			return true
		}
		if class, ok := strings.CutSuffix(w, "/*"); ok &&
			strings.HasPrefix(typ, class+"/") {
			return true
		}
	}
	return false
}

// MatchesStreams evaluates the query nodes, any node matching suffices.
func MatchesStreams(e *Event, nodes []StreamQueryNode) bool {
	for _, n := range nodes {
		if matchesStreamNode(e, n) {
			return true
		}
	}
	return false
}

func matchesStreamNode(e *Event, n StreamQueryNode) bool {
	if len(n.Any) > 0 {
		hit := false
		for _, id := range n.Any {
			if id == storeid.Root || e.InStream(id) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, id := range n.And {
		if !e.InStream(id) {
			return false
		}
	}
	for _, id := range n.Not {
		if e.InStream(id) {
			return false
		}
	}
	return true
}

// MatchesWindow applies the overlap semantics: a finished event matches when
// its span overlaps the window, a running event matches windows that reach
// the present.
func MatchesWindow(e *Event, from, to *float64, now float64) bool {
	if from == nil && to == nil {
		return true
	}

	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}

	if from != nil && end < *from {
		return false
	}
	if to != nil && e.Time > *to {
		return false
	}
	return true
}
