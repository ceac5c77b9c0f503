package types

// Stream is the external, wire-visible shape of a stream node. Ids, parent
// ids and children ids are namespace-qualified.
type Stream struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ParentID *string   `json:"parentId"`
	Trashed  bool      `json:"trashed,omitempty"`
	Deleted  *float64  `json:"deleted,omitempty"`
	Children []*Stream `json:"children"`

	Created    float64 `json:"created,omitempty"`
	CreatedBy  string  `json:"createdBy,omitempty"`
	Modified   float64 `json:"modified,omitempty"`
	ModifiedBy string  `json:"modifiedBy,omitempty"`
}

// Clone returns a deep copy of the stream and its children.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	dup := *s
	if s.ParentID != nil {
		parent := *s.ParentID
		dup.ParentID = &parent
	}
	if s.Deleted != nil {
		deleted := *s.Deleted
		dup.Deleted = &deleted
	}
	if s.Children != nil {
		dup.Children = make([]*Stream, len(s.Children))
		for i, child := range s.Children {
			dup.Children[i] = child.Clone()
		}
	}
	return &dup
}
