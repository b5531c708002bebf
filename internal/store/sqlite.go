package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS geo_objects (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	crs         TEXT NOT NULL,
	object_type TEXT NOT NULL,
	schema_id   TEXT NOT NULL,
	version_id  TEXT NOT NULL,
	build_id    TEXT NOT NULL DEFAULT '',
	document    JSON NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS build_log (
	id          TEXT PRIMARY KEY,
	build_id    TEXT NOT NULL DEFAULT '',
	object_type TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT '',
	errors      INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	object_path TEXT NOT NULL DEFAULT '',
	requester   TEXT NOT NULL DEFAULT '',
	error_code  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geo_objects_created ON geo_objects(created_at);
CREATE INDEX IF NOT EXISTS idx_build_log_created ON build_log(created_at);
`

// SQLite stores objects in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and prepares
// its schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Initialize creates the database schema.
func (s *SQLite) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateObject inserts obj unless its path is taken.
func (s *SQLite) CreateObject(ctx context.Context, obj core.NewObject) (*core.ObjectRecord, error) {
	o := newObject(ctx, obj)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO geo_objects
			(id, path, name, description, crs, object_type, schema_id, version_id, build_id, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING`,
		o.ID, o.Path, o.Name, o.Description, o.CRS, o.ObjectType, o.SchemaID,
		o.VersionID, o.BuildID, string(o.Document), o.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert object: %w", err)
	}
	if n == 0 {
		return nil, existsError(o.Path)
	}
	return o.Record(), nil
}

// GetObject returns the object at path, or (nil, nil) when absent.
func (s *SQLite) GetObject(ctx context.Context, path string) (*Object, error) {
	var (
		o       Object
		doc     string
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, description, crs, object_type, schema_id, version_id, build_id, document, created_at
		FROM geo_objects WHERE path = ?`, path,
	).Scan(&o.ID, &o.Path, &o.Name, &o.Description, &o.CRS, &o.ObjectType, &o.SchemaID, &o.VersionID, &o.BuildID, &doc, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", path, err)
	}
	o.Document = []byte(doc)
	o.CreatedAt = parseTimestamp(created)
	return &o, nil
}

// ListObjects returns objects newest first, without documents.
func (s *SQLite) ListObjects(ctx context.Context, limit, offset int) ([]Object, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, name, description, crs, object_type, schema_id, version_id, build_id, created_at
		FROM geo_objects ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	objects := make([]Object, 0)
	for rows.Next() {
		var (
			o       Object
			created string
		)
		if err := rows.Scan(&o.ID, &o.Path, &o.Name, &o.Description, &o.CRS, &o.ObjectType, &o.SchemaID, &o.VersionID, &o.BuildID, &created); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		o.CreatedAt = parseTimestamp(created)
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// RecordBuild appends an entry to the build log.
func (s *SQLite) RecordBuild(ctx context.Context, e BuildLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO build_log
			(id, build_id, object_type, name, outcome, status, errors, warnings, object_path, requester, error_code, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BuildID, e.ObjectType, e.Name, e.Outcome, e.Status, e.Errors, e.Warnings,
		e.ObjectPath, e.Requester, e.ErrorCode, e.DurationMs, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	return nil
}

// ListBuilds returns build log entries newest first.
func (s *SQLite) ListBuilds(ctx context.Context, f BuildLogFilter) ([]BuildLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, build_id, object_type, name, outcome, status, errors, warnings,
		       object_path, requester, error_code, duration_ms, created_at
		FROM build_log
		WHERE (? = '' OR object_type = ?) AND (? = '' OR outcome = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`,
		f.ObjectType, f.ObjectType, f.Outcome, f.Outcome, f.limit(), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	entries := make([]BuildLogEntry, 0)
	for rows.Next() {
		var (
			e       BuildLogEntry
			created string
		)
		if err := rows.Scan(&e.ID, &e.BuildID, &e.ObjectType, &e.Name, &e.Outcome, &e.Status, &e.Errors, &e.Warnings,
			&e.ObjectPath, &e.Requester, &e.ErrorCode, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		e.CreatedAt = parseTimestamp(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping verifies the database file is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// parseTimestamp parses a timestamp string from SQLite in various formats.
func parseTimestamp(s string) time.Time {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
