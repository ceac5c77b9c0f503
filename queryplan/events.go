package queryplan

import (
	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
)

// EventsRequest is an event query over namespace-qualified identifiers.
type EventsRequest struct {
	ID     string
	HeadID string

	Streams []store.StreamQueryNode
	State   store.State
	Types   []string

	FromTime      *float64
	ToTime        *float64
	ModifiedSince *float64
	Running       *bool

	Limit         int
	Skip          int
	SortAscending bool
}

// EventsPlan is the store-local slice of an events request.
type EventsPlan struct {
	StoreID string
	Query   store.EventsQuery
}

// PlanEvents resolves the request into one plan per targeted store.
//
// A request with an id targets exactly that id's store. Stream expressions
// are grouped by store, each node staying within one store. A request that
// implicates no store defaults to the local store; the bare root marker in a
// stream node fans out to every registered store. Fan-out plans widen their
// limit by the skip so the merged result can be paged afterwards.
func PlanEvents(req EventsRequest, stores []string) ([]EventsPlan, error) {
	base := store.EventsQuery{
		State:         req.State,
		Types:         req.Types,
		FromTime:      req.FromTime,
		ToTime:        req.ToTime,
		ModifiedSince: req.ModifiedSince,
		Running:       req.Running,
		SortAscending: req.SortAscending,
	}

	if req.ID != "" {
		ref := storeid.Decode(req.ID)
		q := base
		q.ID = ref.ID
		q.Limit = req.Limit
		q.Skip = req.Skip
		return []EventsPlan{{StoreID: ref.Store, Query: q}}, nil
	}
	if req.HeadID != "" {
		ref := storeid.Decode(req.HeadID)
		q := base
		q.HeadID = ref.ID
		q.Limit = req.Limit
		q.Skip = req.Skip
		return []EventsPlan{{StoreID: ref.Store, Query: q}}, nil
	}

	byStore, err := groupNodes(req.Streams, stores)
	if err != nil {
		return nil, err
	}

	// A request that implicates no store stays on the default store.
	targets := []string{storeid.Local}
	if len(byStore) > 0 {
		targets = make([]string, 0, len(byStore))
		for _, id := range stores {
			if _, ok := byStore[id]; ok {
				targets = append(targets, id)
			}
		}
		if len(targets) == 0 {
			// Stream nodes name only unregistered stores.
			for id := range byStore {
				return nil, errors.NewUnknownResource("store", id)
			}
		}
	}

	fanOut := len(targets) > 1
	plans := make([]EventsPlan, 0, len(targets))
	for _, id := range targets {
		q := base
		q.Streams = byStore[id]
		if fanOut {
			// Widened paging, final skip/limit applied after the merge.
			q.Skip = 0
			if req.Limit > 0 {
				q.Limit = req.Skip + req.Limit
			}
		} else {
			q.Skip = req.Skip
			q.Limit = req.Limit
		}
		plans = append(plans, EventsPlan{StoreID: id, Query: q})
	}
	return plans, nil
}

// groupNodes buckets stream query nodes by store, decoding ids to their
// local form. A node whose ids span stores is malformed. A root id in an
// Any list widens that node's store to "match everything there".
func groupNodes(nodes []store.StreamQueryNode, stores []string) (map[string][]store.StreamQueryNode, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	byStore := map[string][]store.StreamQueryNode{}
	for _, n := range nodes {
		nodeStore := ""
		local := store.StreamQueryNode{}

		decode := func(ids []string) ([]string, error) {
			out := make([]string, len(ids))
			for i, id := range ids {
				if id == storeid.Root {
					// The bare root applies to every store, handled below.
					out[i] = storeid.Root
					continue
				}
				ref := storeid.Decode(id)
				if nodeStore == "" {
					nodeStore = ref.Store
				} else if ref.Store != nodeStore {
					return nil, errors.NewInvalidRequestStructure(
						"a stream query node cannot mix stores %q and %q", nodeStore, ref.Store)
				}
				out[i] = ref.ID
			}
			return out, nil
		}

		var err error
		if local.Any, err = decode(n.Any); err != nil {
			return nil, err
		}
		if local.And, err = decode(n.And); err != nil {
			return nil, err
		}
		if local.Not, err = decode(n.Not); err != nil {
			return nil, err
		}

		if nodeStore == "" {
			// Only root markers: the node matches everything in every store.
			for _, id := range stores {
				byStore[id] = append(byStore[id], local)
			}
			continue
		}
		byStore[nodeStore] = append(byStore[nodeStore], local)
	}
	return byStore, nil
}
