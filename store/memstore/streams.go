package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/pkg/timestamp"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
)

type streams struct {
	s *Store
}

func (st *streams) Get(ctx context.Context, uid string, q store.StreamsQuery) ([]*store.Stream, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	u := st.s.userRead(uid)
	if u == nil {
		return []*store.Stream{}, nil
	}

	if q.ID != "" && q.ID != storeid.Root {
		node := u.buildSubtree(q.ID, q)
		if node == nil {
			return nil, errors.NewUnknownResource("stream", q.ID)
		}
		return []*store.Stream{node}, nil
	}
	return u.buildForest(q), nil
}

func (st *streams) GetOne(ctx context.Context, uid, id string, q store.StreamsQuery) (*store.Stream, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	u := st.s.userRead(uid)
	if u == nil {
		return nil, errors.NewUnknownResource("stream", id)
	}
	node := u.buildSubtree(id, q)
	if node == nil {
		return nil, errors.NewUnknownResource("stream", id)
	}
	return node, nil
}

func (st *streams) Create(ctx context.Context, uid string, s *store.Stream) (*store.Stream, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	u := st.s.user(uid)
	created := s.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, exists := u.streams[created.ID]; exists {
		return nil, errors.NewItemAlreadyExists("stream", map[string]any{"id": created.ID})
	}
	if created.ParentID != nil {
		if _, ok := u.streams[*created.ParentID]; !ok {
			return nil, errors.NewUnknownResource("stream", *created.ParentID)
		}
	}
	created.Children = nil
	u.streams[created.ID] = created
	return created.Clone(), nil
}

func (st *streams) Update(ctx context.Context, uid string, s *store.Stream) (*store.Stream, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	u := st.s.user(uid)
	existing, ok := u.streams[s.ID]
	if !ok {
		return nil, errors.NewUnknownResource("stream", s.ID)
	}
	if s.ParentID != nil {
		if _, ok := u.streams[*s.ParentID]; !ok {
			return nil, errors.NewUnknownResource("stream", *s.ParentID)
		}
	}
	updated := s.Clone()
	updated.Children = nil
	updated.Created = existing.Created
	updated.CreatedBy = existing.CreatedBy
	u.streams[updated.ID] = updated
	return updated.Clone(), nil
}

func (st *streams) Delete(ctx context.Context, uid, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	u := st.s.user(uid)
	if _, ok := u.streams[id]; !ok {
		return errors.NewUnknownResource("stream", id)
	}

	now := timestamp.Now()
	for _, removed := range u.removeSubtree(id) {
		u.deletions = append(u.deletions, &store.StreamDeletion{ID: removed, Deleted: now})
	}
	return nil
}

func (st *streams) GetDeletions(ctx context.Context, uid string, since float64) ([]*store.StreamDeletion, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	u := st.s.userRead(uid)
	if u == nil {
		return []*store.StreamDeletion{}, nil
	}
	out := []*store.StreamDeletion{}
	for _, d := range u.deletions {
		if d.Deleted >= since {
			dup := *d
			out = append(out, &dup)
		}
	}
	return out, nil
}

func (st *streams) CreateDeleted(ctx context.Context, uid string, d *store.StreamDeletion) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	dup := *d
	st.s.user(uid).deletions = append(st.s.user(uid).deletions, &dup)
	return nil
}

// visible reports whether a stream belongs to the queried state population.
func visible(s *store.Stream, state store.State) bool {
	switch state {
	case store.StateAll:
		return true
	case store.StateTrashed:
		return s.Trashed
	default:
		return !s.Trashed
	}
}

// buildForest assembles the top-level subtrees matching the query, sorted by
// name for a stable order.
func (u *userState) buildForest(q store.StreamsQuery) []*store.Stream {
	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	roots := []*store.Stream{}
	for id, s := range u.streams {
		if s.ParentID == nil {
			if node := u.assemble(id, q.State, excluded); node != nil {
				roots = append(roots, node)
			}
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots
}

// buildSubtree assembles one subtree, nil when absent or filtered out.
func (u *userState) buildSubtree(id string, q store.StreamsQuery) *store.Stream {
	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, eid := range q.ExcludeIDs {
		excluded[eid] = true
	}
	return u.assemble(id, q.State, excluded)
}

// assemble clones a stream with its visible descendants.
func (u *userState) assemble(id string, state store.State, excluded map[string]bool) *store.Stream {
	s, ok := u.streams[id]
	if !ok || excluded[id] || !visible(s, state) {
		return nil
	}

	node := s.Clone()
	node.Children = []*store.Stream{}
	for childID, child := range u.streams {
		if child.ParentID != nil && *child.ParentID == id {
			if sub := u.assemble(childID, state, excluded); sub != nil {
				node.Children = append(node.Children, sub)
			}
		}
	}
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
	return node
}

// removeSubtree deletes a stream and its descendants, returning the removed
// ids, parents first.
func (u *userState) removeSubtree(id string) []string {
	children := []string{}
	for childID, child := range u.streams {
		if child.ParentID != nil && *child.ParentID == id {
			children = append(children, childID)
		}
	}
	delete(u.streams, id)

	removed := []string{id}
	for _, childID := range children {
		removed = append(removed, u.removeSubtree(childID)...)
	}
	return removed
}
