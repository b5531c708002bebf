package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS geo_objects (
	id          UUID PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT,
	crs         TEXT NOT NULL,
	object_type TEXT NOT NULL,
	schema_id   TEXT NOT NULL,
	version_id  UUID NOT NULL,
	build_id    UUID,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS build_log (
	id          UUID PRIMARY KEY,
	build_id    UUID,
	object_type TEXT NOT NULL,
	name        TEXT,
	outcome     TEXT NOT NULL,
	status      TEXT,
	errors      INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	object_path TEXT,
	requester   TEXT,
	error_code  TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_geo_objects_created ON geo_objects (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_build_log_created ON build_log (created_at DESC);
`

// Postgres stores objects in PostgreSQL with documents as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool configured from cfg, verifies the
// connection and creates the schema if needed.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresFromPool wraps an existing pool. The caller owns the pool's
// lifetime only until Close is called.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CreateObject inserts obj unless its path is taken.
func (p *Postgres) CreateObject(ctx context.Context, obj core.NewObject) (*core.ObjectRecord, error) {
	o := newObject(ctx, obj)

	err := p.pool.QueryRow(ctx, `
		INSERT INTO geo_objects
			(id, path, name, description, crs, object_type, schema_id, version_id, build_id, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (path) DO NOTHING
		RETURNING created_at`,
		toPgUUID(o.ID), o.Path, o.Name, toPgText(o.Description), o.CRS, o.ObjectType,
		o.SchemaID, toPgUUID(o.VersionID), toPgUUID(o.BuildID), []byte(o.Document), o.CreatedAt,
	).Scan(&o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, existsError(o.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("insert object: %w", err)
	}
	return o.Record(), nil
}

// GetObject returns the object at path, or (nil, nil) when absent.
func (p *Postgres) GetObject(ctx context.Context, path string) (*Object, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, path, name, description, crs, object_type, schema_id, version_id, build_id, document, created_at
		FROM geo_objects WHERE path = $1`, path)

	var (
		o                  Object
		id, version, build pgtype.UUID
		desc               pgtype.Text
		doc                []byte
	)
	err := row.Scan(&id, &o.Path, &o.Name, &desc, &o.CRS, &o.ObjectType, &o.SchemaID, &version, &build, &doc, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", path, err)
	}
	o.ID = uuidToString(id)
	o.VersionID = uuidToString(version)
	o.BuildID = uuidToString(build)
	o.Description = desc.String
	o.Document = doc
	return &o, nil
}

// ListObjects returns objects newest first, without documents.
func (p *Postgres) ListObjects(ctx context.Context, limit, offset int) ([]Object, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, path, name, description, crs, object_type, schema_id, version_id, build_id, created_at
		FROM geo_objects ORDER BY created_at DESC, path LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	objects := make([]Object, 0)
	for rows.Next() {
		var (
			o                  Object
			id, version, build pgtype.UUID
			desc               pgtype.Text
		)
		if err := rows.Scan(&id, &o.Path, &o.Name, &desc, &o.CRS, &o.ObjectType, &o.SchemaID, &version, &build, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		o.ID = uuidToString(id)
		o.VersionID = uuidToString(version)
		o.BuildID = uuidToString(build)
		o.Description = desc.String
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// RecordBuild appends an entry to the build log.
func (p *Postgres) RecordBuild(ctx context.Context, e BuildLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO build_log
			(id, build_id, object_type, name, outcome, status, errors, warnings, object_path, requester, error_code, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		toPgUUID(e.ID), toPgUUID(e.BuildID), e.ObjectType, toPgText(e.Name), e.Outcome, toPgText(e.Status),
		e.Errors, e.Warnings, toPgText(e.ObjectPath), toPgText(e.Requester), toPgText(e.ErrorCode),
		e.DurationMs, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	return nil
}

// ListBuilds returns build log entries newest first.
func (p *Postgres) ListBuilds(ctx context.Context, f BuildLogFilter) ([]BuildLogEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, build_id, object_type, name, outcome, status, errors, warnings,
		       object_path, requester, error_code, duration_ms, created_at
		FROM build_log
		WHERE ($1::text = '' OR object_type = $1) AND ($2::text = '' OR outcome = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		f.ObjectType, f.Outcome, f.limit(), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	entries := make([]BuildLogEntry, 0)
	for rows.Next() {
		var (
			e                                   BuildLogEntry
			id, build                           pgtype.UUID
			name, status, path, requester, code pgtype.Text
		)
		if err := rows.Scan(&id, &build, &e.ObjectType, &name, &e.Outcome, &status, &e.Errors, &e.Warnings,
			&path, &requester, &code, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		e.ID = uuidToString(id)
		e.BuildID = uuidToString(build)
		e.Name = name.String
		e.Status = status.String
		e.ObjectPath = path.String
		e.Requester = requester.String
		e.ErrorCode = code.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping verifies the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Helper functions for type conversion

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
