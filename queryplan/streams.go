package queryplan

import (
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
)

// StreamsRequest is a streams query over namespace-qualified identifiers.
type StreamsRequest struct {
	ID         string
	State      store.State
	ExcludeIDs []string
}

// StreamsPlan is the store-local slice of a streams request.
type StreamsPlan struct {
	StoreID string
	Query   store.StreamsQuery
}

// PlanStreams resolves the request into one plan per targeted store.
//
// An empty id or the bare root fans out to all registered stores. A store
// root id such as ":archive:" targets that store's whole forest. Any other
// id targets its own store. Exclusions are routed to the store they belong
// to and dropped elsewhere.
func PlanStreams(req StreamsRequest, stores []string) []StreamsPlan {
	excluded := map[string][]string{}
	for _, id := range req.ExcludeIDs {
		ref := storeid.Decode(id)
		excluded[ref.Store] = append(excluded[ref.Store], ref.ID)
	}

	if req.ID == "" || req.ID == storeid.Root {
		plans := make([]StreamsPlan, 0, len(stores))
		for _, id := range stores {
			plans = append(plans, StreamsPlan{
				StoreID: id,
				Query: store.StreamsQuery{
					ID:         storeid.Root,
					State:      req.State,
					ExcludeIDs: excluded[id],
				},
			})
		}
		return plans
	}

	ref := storeid.Decode(req.ID)
	return []StreamsPlan{{
		StoreID: ref.Store,
		Query: store.StreamsQuery{
			ID:         ref.ID,
			State:      req.State,
			ExcludeIDs: excluded[ref.Store],
		},
	}}
}
