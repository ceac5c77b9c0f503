package sqlite

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/pkg/timestamp"
	"github.com/c360/datamall/store"
	"github.com/c360/datamall/storeid"
)

type streams struct {
	s *Store
}

const streamColumns = `id, parent_id, name, trashed, deleted, created, created_by, modified, modified_by`

func (st *streams) Get(ctx context.Context, uid string, q store.StreamsQuery) ([]*store.Stream, error) {
	flat, err := st.loadAll(ctx, uid)
	if err != nil {
		return nil, err
	}

	if q.ID != "" && q.ID != storeid.Root {
		node := assemble(flat, q.ID, q.State)
		if node == nil {
			return nil, errors.NewUnknownResource("stream", q.ID)
		}
		return []*store.Stream{node}, nil
	}

	roots := []*store.Stream{}
	for id, s := range flat {
		if s.ParentID == nil {
			if node := assemble(flat, id, q.State); node != nil {
				roots = append(roots, node)
			}
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots, nil
}

func (st *streams) GetOne(ctx context.Context, uid, id string, q store.StreamsQuery) (*store.Stream, error) {
	flat, err := st.loadAll(ctx, uid)
	if err != nil {
		return nil, err
	}
	node := assemble(flat, id, q.State)
	if node == nil {
		return nil, errors.NewUnknownResource("stream", id)
	}
	return node, nil
}

func (st *streams) Create(ctx context.Context, uid string, s *store.Stream) (*store.Stream, error) {
	created := s.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.ParentID != nil {
		var one int
		err := st.s.db.QueryRowContext(ctx,
			`SELECT 1 FROM streams WHERE uid = ? AND id = ?`, uid, *created.ParentID).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, errors.NewUnknownResource("stream", *created.ParentID)
		}
		if err != nil {
			return nil, errors.Wrap(err, "sqlite", "Streams.Create", "check parent")
		}
	}

	_, err := st.s.db.ExecContext(ctx,
		`INSERT INTO streams (uid, `+streamColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid, created.ID, created.ParentID, created.Name, created.Trashed, created.Deleted,
		created.Created, created.CreatedBy, created.Modified, created.ModifiedBy)
	if err != nil {
		if isConstraint(err) {
			return nil, errors.NewItemAlreadyExists("stream", map[string]any{"id": created.ID})
		}
		return nil, errors.Wrap(err, "sqlite", "Streams.Create", "insert")
	}
	created.Children = nil
	return created, nil
}

func (st *streams) Update(ctx context.Context, uid string, s *store.Stream) (*store.Stream, error) {
	res, err := st.s.db.ExecContext(ctx,
		`UPDATE streams SET parent_id = ?, name = ?, trashed = ?, deleted = ?, modified = ?, modified_by = ?
		 WHERE uid = ? AND id = ?`,
		s.ParentID, s.Name, s.Trashed, s.Deleted, s.Modified, s.ModifiedBy, uid, s.ID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Streams.Update", "update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Streams.Update", "rows affected")
	}
	if n == 0 {
		return nil, errors.NewUnknownResource("stream", s.ID)
	}
	updated := s.Clone()
	updated.Children = nil
	return updated, nil
}

func (st *streams) Delete(ctx context.Context, uid, id string) error {
	flat, err := st.loadAll(ctx, uid)
	if err != nil {
		return err
	}
	if _, ok := flat[id]; !ok {
		return errors.NewUnknownResource("stream", id)
	}

	removed := subtreeIDs(flat, id)
	now := timestamp.Now()

	tx, err := st.s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite", "Streams.Delete", "begin tx")
	}
	defer tx.Rollback()

	for _, rid := range removed {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM streams WHERE uid = ? AND id = ?`, uid, rid); err != nil {
			return errors.Wrap(err, "sqlite", "Streams.Delete", "delete stream")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stream_deletions (uid, id, deleted) VALUES (?, ?, ?)`, uid, rid, now); err != nil {
			return errors.Wrap(err, "sqlite", "Streams.Delete", "record deletion")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "sqlite", "Streams.Delete", "commit")
	}
	return nil
}

func (st *streams) GetDeletions(ctx context.Context, uid string, since float64) ([]*store.StreamDeletion, error) {
	rows, err := st.s.db.QueryContext(ctx,
		`SELECT id, deleted FROM stream_deletions WHERE uid = ? AND deleted >= ? ORDER BY deleted`,
		uid, since)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Streams.GetDeletions", "query")
	}
	defer rows.Close()

	out := []*store.StreamDeletion{}
	for rows.Next() {
		d := &store.StreamDeletion{}
		if err := rows.Scan(&d.ID, &d.Deleted); err != nil {
			return nil, errors.Wrap(err, "sqlite", "Streams.GetDeletions", "scan")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (st *streams) CreateDeleted(ctx context.Context, uid string, d *store.StreamDeletion) error {
	_, err := st.s.db.ExecContext(ctx,
		`INSERT INTO stream_deletions (uid, id, deleted) VALUES (?, ?, ?)`, uid, d.ID, d.Deleted)
	if err != nil {
		return errors.Wrap(err, "sqlite", "Streams.CreateDeleted", "insert")
	}
	return nil
}

// loadAll reads the user's streams as a flat id-indexed map.
func (st *streams) loadAll(ctx context.Context, uid string) (map[string]*store.Stream, error) {
	rows, err := st.s.db.QueryContext(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE uid = ?`, uid)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Streams.Get", "query")
	}
	defer rows.Close()

	flat := map[string]*store.Stream{}
	for rows.Next() {
		s := &store.Stream{}
		if err := rows.Scan(&s.ID, &s.ParentID, &s.Name, &s.Trashed, &s.Deleted,
			&s.Created, &s.CreatedBy, &s.Modified, &s.ModifiedBy); err != nil {
			return nil, errors.Wrap(err, "sqlite", "Streams.Get", "scan")
		}
		flat[s.ID] = s
	}
	return flat, rows.Err()
}

// assemble clones a stream with its visible descendants, nil when absent or
// filtered out by state.
func assemble(flat map[string]*store.Stream, id string, state store.State) *store.Stream {
	s, ok := flat[id]
	if !ok || !streamVisible(s, state) {
		return nil
	}

	node := s.Clone()
	node.Children = []*store.Stream{}
	for childID, child := range flat {
		if child.ParentID != nil && *child.ParentID == id {
			if sub := assemble(flat, childID, state); sub != nil {
				node.Children = append(node.Children, sub)
			}
		}
	}
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
	return node
}

func streamVisible(s *store.Stream, state store.State) bool {
	switch state {
	case store.StateAll:
		return true
	case store.StateTrashed:
		return s.Trashed
	default:
		return !s.Trashed
	}
}

func subtreeIDs(flat map[string]*store.Stream, id string) []string {
	out := []string{id}
	for childID, child := range flat {
		if child.ParentID != nil && *child.ParentID == id {
			out = append(out, subtreeIDs(flat, childID)...)
		}
	}
	return out
}

// isConstraint reports whether err is a SQLite uniqueness violation.
func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
