package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/c360/datamall/eventtypes"
	"github.com/c360/datamall/series"
)

// Config holds backend configuration options.
type Config struct {
	// DSN is the DuckDB connection string; empty means in-memory.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// QueryTimeout is the default timeout applied to statements.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns: 8,
		QueryTimeout: 30 * time.Second,
	}
}

// Client implements series.Backend on a DuckDB database.
//
// Client is safe for concurrent use.
type Client struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

var _ series.Backend = (*Client)(nil)

// New opens the DuckDB database and returns the backend client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return &Client{db: db, config: cfg, logger: logger}, nil
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.db.PingContext(ctx)
}

// CreateDatabase ensures the schema backing a namespace exists.
func (c *Client) CreateDatabase(ctx context.Context, namespace string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Debug("series backend: create database", "namespace", namespace)
	_, err := c.db.ExecContext(ctx,
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdent(namespace)))
	return err
}

// DropDatabase removes a namespace's schema and every measurement in it.
func (c *Client) DropDatabase(ctx context.Context, namespace string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Info("series backend: drop database", "namespace", namespace)
	_, err := c.db.ExecContext(ctx,
		fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", quoteIdent(namespace)))
	return err
}

// WriteMeasurement writes points that all belong to one measurement.
func (c *Client) WriteMeasurement(ctx context.Context, namespace, measurement string, points []series.Point) error {
	for i := range points {
		if points[i].Measurement == "" {
			points[i].Measurement = measurement
		}
	}
	return c.WritePoints(ctx, namespace, points)
}

// WritePoints writes a mixed-measurement batch in one transaction.
func (c *Client) WritePoints(ctx context.Context, namespace string, points []series.Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Debug("series backend: write points",
		"namespace", namespace, "points", len(points))

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdent(namespace))); err != nil {
		return err
	}

	created := map[string]bool{}
	for _, point := range points {
		if !created[point.Measurement] {
			if _, err := tx.ExecContext(ctx, createTableSQL(namespace, point.Measurement)); err != nil {
				return err
			}
			created[point.Measurement] = true
		}
		doc, err := json.Marshal(point.Values)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertSQL(namespace, point.Measurement),
			point.Timestamp, string(doc)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query reads the points of one measurement within the bounds, ordered by
// timestamp. A measurement that was never written reads as empty.
func (c *Client) Query(ctx context.Context, namespace, measurement string, q series.Query) (*series.DataMatrix, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Debug("series backend: query",
		"namespace", namespace, "measurement", measurement)

	if exists, err := c.tableExists(ctx, namespace, measurement); err != nil {
		return nil, err
	} else if !exists {
		return &series.DataMatrix{
			Columns: []string{eventtypes.TimestampField},
			Data:    [][]any{},
		}, nil
	}

	query, args := selectSQL(namespace, measurement, q)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	type record = struct {
		ts     float64
		values map[string]any
	}
	var records []record
	columns := map[string]bool{}

	for rows.Next() {
		var ts float64
		var doc string
		if err := rows.Scan(&ts, &doc); err != nil {
			return nil, err
		}
		values := map[string]any{}
		if err := json.Unmarshal([]byte(doc), &values); err != nil {
			return nil, err
		}
		for col := range values {
			columns[col] = true
		}
		records = append(records, record{ts: ts, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buildMatrix(records, columns), nil
}

// DropMeasurement removes one measurement and its points.
func (c *Client) DropMeasurement(ctx context.Context, namespace, measurement string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Info("series backend: drop measurement",
		"namespace", namespace, "measurement", measurement)
	_, err := c.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s",
		tableName(namespace, measurement)))
	return err
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.QueryTimeout)
}

func (c *Client) tableExists(ctx context.Context, namespace, measurement string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables
		 WHERE table_schema = ? AND table_name = ?`,
		namespace, measurement).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// buildMatrix reassembles scanned records into an ordered matrix. Columns are
// the union of stored value keys, sorted, with the timestamp column first.
func buildMatrix(records []struct {
	ts     float64
	values map[string]any
}, columns map[string]bool) *series.DataMatrix {
	names := make([]string, 0, len(columns))
	for col := range columns {
		names = append(names, col)
	}
	sort.Strings(names)
	fields := append([]string{eventtypes.TimestampField}, names...)

	data := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(fields))
		row[0] = rec.ts
		for j, col := range names {
			row[j+1] = rec.values[col]
		}
		data[i] = row
	}
	return &series.DataMatrix{Columns: fields, Data: data}
}

// quoteIdent quotes an identifier for direct interpolation. Namespace and
// measurement names are generated ids, the quoting is there to keep the SQL
// well-formed whatever they contain.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func tableName(namespace, measurement string) string {
	return quoteIdent(namespace) + "." + quoteIdent(measurement)
}

func createTableSQL(namespace, measurement string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (ts DOUBLE PRIMARY KEY, doc VARCHAR NOT NULL)",
		tableName(namespace, measurement))
}

func upsertSQL(namespace, measurement string) string {
	return fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (ts, doc) VALUES (?, ?)",
		tableName(namespace, measurement))
}

func selectSQL(namespace, measurement string, q series.Query) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT ts, doc FROM %s", tableName(namespace, measurement))

	var clauses []string
	var args []any
	if q.From != nil {
		clauses = append(clauses, "ts >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		clauses = append(clauses, "ts <= ?")
		args = append(args, *q.To)
	}
	if len(clauses) > 0 {
		sb.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	sb.WriteString(" ORDER BY ts")
	return sb.String(), args
}
