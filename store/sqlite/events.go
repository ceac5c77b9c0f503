package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/pkg/timestamp"
	"github.com/c360/datamall/store"
)

type events struct {
	s *Store
}

const eventColumns = `id, stream_ids, time, end_time, type, content, trashed, deleted,
	attachments, integrity, created, created_by, modified, modified_by`

func (ev *events) Get(ctx context.Context, uid string, q store.EventsQuery) ([]*store.Event, error) {
	cursor, err := ev.GetStreamed(ctx, uid, q)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	out := []*store.Event{}
	for {
		e, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return out, nil
		}
		out = append(out, e)
	}
}

func (ev *events) GetStreamed(ctx context.Context, uid string, q store.EventsQuery) (store.EventsCursor, error) {
	where, args := eventPredicates(uid, q)
	order := "DESC"
	if q.SortAscending {
		order = "ASC"
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY time ` + order

	rows, err := ev.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.GetStreamed", "query")
	}
	return &rowsCursor{
		rows:  rows,
		query: q,
		now:   timestamp.Now(),
		skip:  q.Skip,
		limit: q.Limit,
	}, nil
}

// eventPredicates builds the SQL-side filters. Stream expressions, type
// wildcards and the time window stay on the Go side where their semantics
// do not map onto column comparisons.
func eventPredicates(uid string, q store.EventsQuery) ([]string, []any) {
	where := []string{"uid = ?"}
	args := []any{uid}

	if q.ID != "" {
		where = append(where, "id = ?")
		args = append(args, q.ID)
	}
	if q.HeadID != "" {
		where = append(where, "id = ?")
		args = append(args, q.HeadID)
	}
	switch q.State {
	case store.StateAll:
	case store.StateTrashed:
		where = append(where, "trashed = 1", "deleted IS NULL")
	default:
		where = append(where, "trashed = 0", "deleted IS NULL")
	}
	if q.Running != nil {
		if *q.Running {
			where = append(where, "end_time IS NULL")
		} else {
			where = append(where, "end_time IS NOT NULL")
		}
	}
	if q.ModifiedSince != nil {
		where = append(where, "modified > ?")
		args = append(args, *q.ModifiedSince)
	}
	return where, args
}

func (ev *events) Create(ctx context.Context, uid string, e *store.Event) (*store.Event, error) {
	created := e.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	streamIDs, content, attachments, err := marshalEventDocs(created)
	if err != nil {
		return nil, err
	}

	_, err = ev.s.db.ExecContext(ctx,
		`INSERT INTO events (uid, `+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid, created.ID, streamIDs, created.Time, created.EndTime, created.Type, content,
		created.Trashed, created.Deleted, attachments, created.Integrity,
		created.Created, created.CreatedBy, created.Modified, created.ModifiedBy)
	if err != nil {
		if isConstraint(err) {
			return nil, errors.NewItemAlreadyExists("event", map[string]any{"id": created.ID})
		}
		return nil, errors.Wrap(err, "sqlite", "Events.Create", "insert")
	}
	return created, nil
}

func (ev *events) Update(ctx context.Context, uid string, e *store.Event) (*store.Event, error) {
	streamIDs, content, attachments, err := marshalEventDocs(e)
	if err != nil {
		return nil, err
	}

	res, err := ev.s.db.ExecContext(ctx,
		`UPDATE events SET stream_ids = ?, time = ?, end_time = ?, type = ?, content = ?,
		 trashed = ?, deleted = ?, attachments = ?, integrity = ?, modified = ?, modified_by = ?
		 WHERE uid = ? AND id = ?`,
		streamIDs, e.Time, e.EndTime, e.Type, content, e.Trashed, e.Deleted,
		attachments, e.Integrity, e.Modified, e.ModifiedBy, uid, e.ID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.Update", "update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.Update", "rows affected")
	}
	if n == 0 {
		return nil, errors.NewInvalidItemID(e.ID)
	}
	return e.Clone(), nil
}

func (ev *events) Delete(ctx context.Context, uid, id string) error {
	res, err := ev.s.db.ExecContext(ctx,
		`DELETE FROM events WHERE uid = ? AND id = ?`, uid, id)
	if err != nil {
		return errors.Wrap(err, "sqlite", "Events.Delete", "delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "sqlite", "Events.Delete", "rows affected")
	}
	if n == 0 {
		return errors.NewUnknownResource("event", id)
	}
	_, err = ev.s.db.ExecContext(ctx,
		`DELETE FROM attached_files WHERE uid = ? AND event_id = ?`, uid, id)
	if err != nil {
		return errors.Wrap(err, "sqlite", "Events.Delete", "delete files")
	}
	return nil
}

func (ev *events) SaveAttachedFiles(ctx context.Context, uid, eventID string, files []store.AttachedFile) ([]store.Attachment, error) {
	existing, err := ev.loadOne(ctx, uid, eventID)
	if err != nil {
		return nil, err
	}

	tx, err := ev.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.SaveAttachedFiles", "begin tx")
	}
	defer tx.Rollback()

	saved := make([]store.Attachment, 0, len(files))
	for _, f := range files {
		content, err := io.ReadAll(f.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "sqlite", "Events.SaveAttachedFiles", "read file")
		}
		sum := sha256.Sum256(content)
		att := store.Attachment{
			ID:        uuid.NewString(),
			FileName:  f.FileName,
			Type:      f.Type,
			Size:      int64(len(content)),
			Integrity: "sha256-" + base64.StdEncoding.EncodeToString(sum[:]),
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attached_files (uid, event_id, file_id, content) VALUES (?, ?, ?, ?)`,
			uid, eventID, att.ID, content); err != nil {
			return nil, errors.Wrap(err, "sqlite", "Events.SaveAttachedFiles", "insert file")
		}
		existing.Attachments = append(existing.Attachments, att)
		saved = append(saved, att)
	}

	doc, err := json.Marshal(existing.Attachments)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.SaveAttachedFiles", "marshal attachments")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET attachments = ? WHERE uid = ? AND id = ?`,
		string(doc), uid, eventID); err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.SaveAttachedFiles", "update event")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.SaveAttachedFiles", "commit")
	}
	return saved, nil
}

func (ev *events) GetAttachedFile(ctx context.Context, uid, eventID, fileID string) (io.ReadCloser, error) {
	var content []byte
	err := ev.s.db.QueryRowContext(ctx,
		`SELECT content FROM attached_files WHERE uid = ? AND event_id = ? AND file_id = ?`,
		uid, eventID, fileID).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, errors.NewUnknownResource("attachment", fileID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.GetAttachedFile", "query")
	}
	return io.NopCloser(strings.NewReader(string(content))), nil
}

func (ev *events) DeleteAttachedFile(ctx context.Context, uid, eventID, fileID string) (*store.Event, error) {
	e, err := ev.loadOne(ctx, uid, eventID)
	if err != nil {
		return nil, err
	}

	found := false
	kept := make([]store.Attachment, 0, len(e.Attachments))
	for _, att := range e.Attachments {
		if att.ID == fileID {
			found = true
			continue
		}
		kept = append(kept, att)
	}
	if !found {
		return nil, errors.NewUnknownResource("attachment", fileID)
	}
	e.Attachments = kept

	doc, err := json.Marshal(kept)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.DeleteAttachedFile", "marshal attachments")
	}

	tx, err := ev.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.DeleteAttachedFile", "begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attached_files WHERE uid = ? AND event_id = ? AND file_id = ?`,
		uid, eventID, fileID); err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.DeleteAttachedFile", "delete file")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET attachments = ? WHERE uid = ? AND id = ?`,
		string(doc), uid, eventID); err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.DeleteAttachedFile", "update event")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.DeleteAttachedFile", "commit")
	}
	return e, nil
}

// loadOne fetches a single event regardless of state.
func (ev *events) loadOne(ctx context.Context, uid, id string) (*store.Event, error) {
	row := ev.s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE uid = ? AND id = ?`, uid, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewUnknownResource("event", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.Get", "scan")
	}
	return e, nil
}

// marshalEventDocs serializes the JSON-document columns.
func marshalEventDocs(e *store.Event) (streamIDs string, content, attachments *string, err error) {
	ids, err := json.Marshal(e.StreamIDs)
	if err != nil {
		return "", nil, nil, errors.Wrap(err, "sqlite", "Events", "marshal stream ids")
	}
	if e.Content != nil {
		doc, err := json.Marshal(e.Content)
		if err != nil {
			return "", nil, nil, errors.Wrap(err, "sqlite", "Events", "marshal content")
		}
		s := string(doc)
		content = &s
	}
	if len(e.Attachments) > 0 {
		doc, err := json.Marshal(e.Attachments)
		if err != nil {
			return "", nil, nil, errors.Wrap(err, "sqlite", "Events", "marshal attachments")
		}
		s := string(doc)
		attachments = &s
	}
	return string(ids), content, attachments, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*store.Event, error) {
	e := &store.Event{}
	var streamIDs string
	var content, attachments sql.NullString
	err := row.Scan(&e.ID, &streamIDs, &e.Time, &e.EndTime, &e.Type, &content,
		&e.Trashed, &e.Deleted, &attachments, &e.Integrity,
		&e.Created, &e.CreatedBy, &e.Modified, &e.ModifiedBy)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(streamIDs), &e.StreamIDs); err != nil {
		return nil, err
	}
	if content.Valid {
		if err := json.Unmarshal([]byte(content.String), &e.Content); err != nil {
			return nil, err
		}
	}
	if attachments.Valid {
		if err := json.Unmarshal([]byte(attachments.String), &e.Attachments); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// rowsCursor streams matching rows, applying the Go-side filters plus skip
// and limit as it advances.
type rowsCursor struct {
	rows    *sql.Rows
	query   store.EventsQuery
	now     float64
	skip    int
	limit   int
	yielded int
}

func (c *rowsCursor) Next(ctx context.Context) (*store.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.limit > 0 && c.yielded >= c.limit {
		return nil, nil
	}
	for c.rows.Next() {
		e, err := scanEvent(c.rows)
		if err != nil {
			return nil, errors.Wrap(err, "sqlite", "Events.GetStreamed", "scan")
		}
		if !matchesGoSide(e, c.query, c.now) {
			continue
		}
		if c.skip > 0 {
			c.skip--
			continue
		}
		c.yielded++
		return e, nil
	}
	if err := c.rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite", "Events.GetStreamed", "iterate")
	}
	return nil, nil
}

func (c *rowsCursor) Close() error {
	return c.rows.Close()
}

// matchesGoSide applies the filters kept out of SQL: stream expressions,
// type wildcards and the overlap time window.
func matchesGoSide(e *store.Event, q store.EventsQuery, now float64) bool {
	if len(q.Types) > 0 && !store.MatchesType(e.Type, q.Types) {
		return false
	}
	if len(q.Streams) > 0 && !store.MatchesStreams(e, q.Streams) {
		return false
	}
	return store.MatchesWindow(e, q.FromTime, q.ToTime, now)
}
