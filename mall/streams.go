package mall

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/queryplan"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
	"github.com/c360/datamall/types"
)

// Streams is the aggregated stream facade.
type Streams struct {
	m *Mall
}

// Get returns the stream forest matching the request. Local streams stay at
// the top level; each named store contributes its forest wrapped under a
// synthetic root stream carrying the store's name.
func (st *Streams) Get(ctx context.Context, uid string, req queryplan.StreamsRequest) ([]*types.Stream, error) {
	done := st.m.instrument("streams", "get", "")
	merged, err := st.get(ctx, uid, req)
	done(err)
	return merged, err
}

func (st *Streams) get(ctx context.Context, uid string, req queryplan.StreamsRequest) ([]*types.Stream, error) {
	plans := queryplan.PlanStreams(req, st.m.StoreIDs())

	results := make([][]*types.Stream, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	for i, plan := range plans {
		g.Go(func() error {
			nodes, err := st.execute(gctx, uid, plan)
			if err != nil {
				return err
			}
			results[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := []*types.Stream{}
	for _, nodes := range results {
		merged = append(merged, nodes...)
	}
	return merged, nil
}

// execute runs one plan against its store and converts the result.
func (st *Streams) execute(ctx context.Context, uid string, plan queryplan.StreamsPlan) ([]*types.Stream, error) {
	s, err := st.m.storeFor(plan.StoreID)
	if err != nil {
		return nil, err
	}

	q := plan.Query
	pruneLocally := len(q.ExcludeIDs) > 0 && !s.Capabilities().NativeExcludeIDs
	if pruneLocally {
		q.ExcludeIDs = nil
	}

	nodes, err := s.Streams().Get(ctx, uid, q)
	if err != nil {
		return nil, errors.WrapStore(err, plan.StoreID, "mall", "Streams.Get")
	}
	if pruneLocally {
		nodes = pruneExcluded(nodes, plan.Query.ExcludeIDs)
	}

	converted := make([]*types.Stream, 0, len(nodes))
	for _, n := range nodes {
		converted = append(converted, st.m.tr.StreamFromStore(plan.StoreID, n))
	}

	if plan.StoreID != storeid.Local && plan.Query.ID == storeid.Root {
		return []*types.Stream{st.storeRoot(s, converted)}, nil
	}
	return converted, nil
}

// storeRoot synthesizes the pseudo-stream representing a named store's root.
func (st *Streams) storeRoot(s store.Store, children []*types.Stream) *types.Stream {
	desc := s.Descriptor()
	return &types.Stream{
		ID:       storeid.EncodeIn(desc.ID, storeid.Root),
		Name:     desc.Name,
		Children: children,
	}
}

// GetOne returns one stream subtree by namespaced id. The bare root id
// yields the whole forest under a synthetic node; a store root id yields
// the synthetic root with that store's forest as children.
func (st *Streams) GetOne(ctx context.Context, uid, id string, state store.State) (*types.Stream, error) {
	done := st.m.instrument("streams", "getOne", "")
	node, err := st.getOne(ctx, uid, id, state)
	done(err)
	return node, err
}

func (st *Streams) getOne(ctx context.Context, uid, id string, state store.State) (*types.Stream, error) {
	ref := storeid.Decode(id)
	s, err := st.m.storeFor(ref.Store)
	if err != nil {
		return nil, err
	}

	if ref.IsRoot() && ref.IsLocal() {
		// The platform root: the whole forest, named store roots included,
		// under one synthetic node.
		forest, err := st.get(ctx, uid, queryplan.StreamsRequest{ID: storeid.Root, State: state})
		if err != nil {
			return nil, err
		}
		return &types.Stream{ID: storeid.Root, Children: forest}, nil
	}

	if ref.IsRoot() && !ref.IsLocal() {
		nodes, err := s.Streams().Get(ctx, uid, store.StreamsQuery{ID: storeid.Root, State: state})
		if err != nil {
			return nil, errors.WrapStore(err, ref.Store, "mall", "Streams.GetOne")
		}
		converted := make([]*types.Stream, 0, len(nodes))
		for _, n := range nodes {
			converted = append(converted, st.m.tr.StreamFromStore(ref.Store, n))
		}
		return st.storeRoot(s, converted), nil
	}

	node, err := s.Streams().GetOne(ctx, uid, ref.ID, store.StreamsQuery{State: state})
	if err != nil {
		return nil, errors.WrapStore(err, ref.Store, "mall", "Streams.GetOne")
	}
	return st.m.tr.StreamFromStore(ref.Store, node), nil
}

// Create inserts a new stream. Sibling names must be unique within the
// parent, compared case-sensitively.
func (st *Streams) Create(ctx context.Context, uid string, s *types.Stream) (*types.Stream, error) {
	prepared := s.Clone()
	if prepared.ID == "" {
		targetStore := storeid.Local
		if prepared.ParentID != nil {
			targetStore = storeid.Decode(*prepared.ParentID).Store
		}
		prepared.ID = storeid.EncodeIn(targetStore, uuid.NewString())
	}
	now := nowSeconds()
	if prepared.Created == 0 {
		prepared.Created = now
	}
	if prepared.Modified == 0 {
		prepared.Modified = now
	}

	storeID, canonical, err := st.m.tr.StreamToStore(prepared)
	if err != nil {
		return nil, err
	}
	done := st.m.instrument("streams", "create", storeID)

	backend, err := st.m.storeFor(storeID)
	if err != nil {
		done(err)
		return nil, err
	}
	if err := st.checkSiblingName(ctx, uid, backend, storeID, canonical.ParentID, canonical.Name, canonical.ID); err != nil {
		done(err)
		return nil, err
	}

	created, err := backend.Streams().Create(ctx, uid, canonical)
	if err != nil {
		err = errors.WrapStore(err, storeID, "mall", "Streams.Create")
		done(err)
		return nil, err
	}
	done(nil)
	return st.m.tr.StreamFromStore(storeID, created), nil
}

// Update replaces the mutable fields of a stream.
func (st *Streams) Update(ctx context.Context, uid string, s *types.Stream) (*types.Stream, error) {
	prepared := s.Clone()
	prepared.Modified = nowSeconds()

	storeID, canonical, err := st.m.tr.StreamToStore(prepared)
	if err != nil {
		return nil, err
	}
	done := st.m.instrument("streams", "update", storeID)

	backend, err := st.m.storeFor(storeID)
	if err != nil {
		done(err)
		return nil, err
	}
	if err := st.checkSiblingName(ctx, uid, backend, storeID, canonical.ParentID, canonical.Name, canonical.ID); err != nil {
		done(err)
		return nil, err
	}

	updated, err := backend.Streams().Update(ctx, uid, canonical)
	if err != nil {
		err = errors.WrapStore(err, storeID, "mall", "Streams.Update")
		done(err)
		return nil, err
	}
	done(nil)
	return st.m.tr.StreamFromStore(storeID, updated), nil
}

// Delete removes a stream subtree permanently.
func (st *Streams) Delete(ctx context.Context, uid, id string) error {
	ref := storeid.Decode(id)
	done := st.m.instrument("streams", "delete", ref.Store)

	backend, err := st.m.storeFor(ref.Store)
	if err != nil {
		done(err)
		return err
	}
	if err := backend.Streams().Delete(ctx, uid, ref.ID); err != nil {
		err = errors.WrapStore(err, ref.Store, "mall", "Streams.Delete")
		done(err)
		return err
	}
	done(nil)
	return nil
}

// GetDeletions lists a store's stream deletions at or after since, with
// namespace-qualified ids. An empty store id targets the local store.
func (st *Streams) GetDeletions(ctx context.Context, uid, storeID string, since float64) ([]*store.StreamDeletion, error) {
	if storeID == "" {
		storeID = storeid.Local
	}
	done := st.m.instrument("streams", "getDeletions", storeID)

	backend, err := st.m.storeFor(storeID)
	if err != nil {
		done(err)
		return nil, err
	}
	deletions, err := backend.Streams().GetDeletions(ctx, uid, since)
	if err != nil {
		err = errors.WrapStore(err, storeID, "mall", "Streams.GetDeletions")
		done(err)
		return nil, err
	}
	done(nil)

	for _, d := range deletions {
		d.ID = storeid.EncodeIn(storeID, d.ID)
	}
	return deletions, nil
}

// CreateDeleted records a synced deletion in the id's store.
func (st *Streams) CreateDeleted(ctx context.Context, uid, id string, deleted float64) error {
	ref := storeid.Decode(id)
	done := st.m.instrument("streams", "createDeleted", ref.Store)

	backend, err := st.m.storeFor(ref.Store)
	if err != nil {
		done(err)
		return err
	}
	err = backend.Streams().CreateDeleted(ctx, uid, &store.StreamDeletion{ID: ref.ID, Deleted: deleted})
	if err != nil {
		err = errors.WrapStore(err, ref.Store, "mall", "Streams.CreateDeleted")
		done(err)
		return err
	}
	done(nil)
	return nil
}

// checkSiblingName enforces unique names among siblings. The comparison is
// exact: names differing only in case coexist.
func (st *Streams) checkSiblingName(ctx context.Context, uid string, backend store.Store, storeID string, parentID *string, name, selfID string) error {
	var siblings []*store.Stream
	if parentID == nil {
		forest, err := backend.Streams().Get(ctx, uid, store.StreamsQuery{ID: storeid.Root, State: store.StateAll})
		if err != nil {
			return errors.WrapStore(err, storeID, "mall", "Streams.checkSiblingName")
		}
		siblings = forest
	} else {
		parent, err := backend.Streams().GetOne(ctx, uid, *parentID, store.StreamsQuery{State: store.StateAll})
		if err != nil {
			return errors.WrapStore(err, storeID, "mall", "Streams.checkSiblingName")
		}
		siblings = parent.Children
	}

	for _, sibling := range siblings {
		if sibling.ID != selfID && sibling.Name == name {
			return errors.NewItemAlreadyExists("stream", map[string]any{"name": name})
		}
	}
	return nil
}

// pruneExcluded removes excluded subtrees from a converted-from-store
// forest, for stores without native exclusion support.
func pruneExcluded(nodes []*store.Stream, excludeIDs []string) []*store.Stream {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	return pruneMarked(nodes, excluded)
}

func pruneMarked(nodes []*store.Stream, excluded map[string]bool) []*store.Stream {
	kept := []*store.Stream{}
	for _, n := range nodes {
		if excluded[n.ID] {
			continue
		}
		n.Children = pruneMarked(n.Children, excluded)
		kept = append(kept, n)
	}
	return kept
}
