package transform

import (
	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
	"github.com/c360/datamall/types"
)

// StreamToStore converts a wire stream to its canonical store shape and
// returns the store it belongs to. The parent must live in the same store;
// a parent designating the store root becomes a nil parent at store level.
func (t *Transformer) StreamToStore(s *types.Stream) (string, *store.Stream, error) {
	ref := storeid.Decode(s.ID)

	var parentID *string
	if s.ParentID != nil {
		parent := storeid.Decode(*s.ParentID)
		if parent.Store != ref.Store {
			return "", nil, errors.NewInvalidRequestStructure(
				"stream %q cannot have its parent in store %q", s.ID, parent.Store)
		}
		if !parent.IsRoot() {
			id := parent.ID
			parentID = &id
		}
	}

	out := &store.Stream{
		ID:         ref.ID,
		ParentID:   parentID,
		Name:       s.Name,
		Trashed:    s.Trashed,
		Deleted:    copyFloat(s.Deleted),
		Created:    s.Created,
		CreatedBy:  s.CreatedBy,
		Modified:   s.Modified,
		ModifiedBy: s.ModifiedBy,
	}
	return ref.Store, out, nil
}

// StreamFromStore converts a canonical stream and its children back to the
// wire shape. Top-level streams of a named store report the store's
// synthetic root as their parent; local top-level streams keep a nil parent.
func (t *Transformer) StreamFromStore(storeID string, s *store.Stream) *types.Stream {
	var parentID *string
	switch {
	case s.ParentID != nil:
		parent := storeid.EncodeIn(storeID, *s.ParentID)
		parentID = &parent
	case storeID != storeid.Local:
		parent := storeid.EncodeIn(storeID, storeid.Root)
		parentID = &parent
	}

	out := &types.Stream{
		ID:         storeid.EncodeIn(storeID, s.ID),
		Name:       s.Name,
		ParentID:   parentID,
		Trashed:    s.Trashed,
		Deleted:    copyFloat(s.Deleted),
		Created:    s.Created,
		CreatedBy:  s.CreatedBy,
		Modified:   s.Modified,
		ModifiedBy: s.ModifiedBy,
	}
	if s.Children != nil {
		out.Children = make([]*types.Stream, len(s.Children))
		for i, child := range s.Children {
			out.Children[i] = t.StreamFromStore(storeID, child)
		}
	}
	return out
}
