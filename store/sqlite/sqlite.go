package sqlite

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/store"
)

// Config holds the store's connection settings.
type Config struct {
	// Path is the database file path. ":memory:" opens an ephemeral store.
	Path string

	MaxOpenConns int
}

// DefaultConfig returns settings for a file-backed store at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, MaxOpenConns: 4}
}

// Store is the SQLite-backed document store. It registers under the
// reserved "local" descriptor by default.
type Store struct {
	db     *sql.DB
	desc   store.Descriptor
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS streams (
	uid         TEXT NOT NULL,
	id          TEXT NOT NULL,
	parent_id   TEXT,
	name        TEXT NOT NULL,
	trashed     INTEGER NOT NULL DEFAULT 0,
	deleted     REAL,
	created     REAL NOT NULL DEFAULT 0,
	created_by  TEXT NOT NULL DEFAULT '',
	modified    REAL NOT NULL DEFAULT 0,
	modified_by TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (uid, id)
);
CREATE INDEX IF NOT EXISTS idx_streams_parent ON streams (uid, parent_id);

CREATE TABLE IF NOT EXISTS stream_deletions (
	uid     TEXT NOT NULL,
	id      TEXT NOT NULL,
	deleted REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stream_deletions ON stream_deletions (uid, deleted);

CREATE TABLE IF NOT EXISTS events (
	uid         TEXT NOT NULL,
	id          TEXT NOT NULL,
	stream_ids  TEXT NOT NULL,
	time        REAL NOT NULL,
	end_time    REAL,
	type        TEXT NOT NULL,
	content     TEXT,
	trashed     INTEGER NOT NULL DEFAULT 0,
	deleted     REAL,
	attachments TEXT,
	integrity   TEXT NOT NULL DEFAULT '',
	created     REAL NOT NULL DEFAULT 0,
	created_by  TEXT NOT NULL DEFAULT '',
	modified    REAL NOT NULL DEFAULT 0,
	modified_by TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (uid, id)
);
CREATE INDEX IF NOT EXISTS idx_events_time ON events (uid, time);
CREATE INDEX IF NOT EXISTS idx_events_modified ON events (uid, modified);

CREATE TABLE IF NOT EXISTS attached_files (
	uid      TEXT NOT NULL,
	event_id TEXT NOT NULL,
	file_id  TEXT NOT NULL,
	content  BLOB NOT NULL,
	PRIMARY KEY (uid, event_id, file_id)
);
`

// Open opens or creates the database and applies the schema.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", cfg.Path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "sqlite", "Open", "open database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite", "Open", "apply schema")
	}
	logger.Info("sqlite store ready", "path", cfg.Path)
	return &Store{
		db:     db,
		desc:   store.Descriptor{ID: "local", Name: "Local document store"},
		logger: logger,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Descriptor implements store.Store.
func (s *Store) Descriptor() store.Descriptor {
	return s.desc
}

// Capabilities implements store.Store. Exclusion filters are left to the
// aggregation layer.
func (s *Store) Capabilities() store.Capabilities {
	return store.Capabilities{}
}

// Streams implements store.Store.
func (s *Store) Streams() store.Streams {
	return &streams{s: s}
}

// Events implements store.Store.
func (s *Store) Events() store.Events {
	return &events{s: s}
}
