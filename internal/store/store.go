// Package store persists created objects and the build log.
//
// Two backends implement Store: PostgreSQL through a pgx pool for shared
// deployments, and an embedded SQLite file for local use. Both enforce
// unique object paths; a second create at the same path fails with
// ErrObjectExists and leaves the first object untouched.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/google/uuid"
)

// ErrObjectExists is returned when an object already occupies a path.
var ErrObjectExists = errors.New("object already exists")

// DefaultListLimit bounds list queries that do not set a limit.
const DefaultListLimit = 50

// Object is a persisted geoscience object.
type Object struct {
	ID          string          `json:"id"`
	Path        string          `json:"path"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CRS         string          `json:"crs"`
	ObjectType  string          `json:"object_type"`
	SchemaID    string          `json:"schema"`
	VersionID   string          `json:"version_id"`
	BuildID     string          `json:"build_id,omitempty"`
	Document    json.RawMessage `json:"document,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Record returns the acknowledgement handed back to the build controller.
func (o *Object) Record() *core.ObjectRecord {
	return &core.ObjectRecord{
		ID:        o.ID,
		Path:      o.Path,
		VersionID: o.VersionID,
		CreatedAt: o.CreatedAt,
	}
}

// BuildLogEntry is one row of the build log.
type BuildLogEntry struct {
	ID         string    `json:"id"`
	BuildID    string    `json:"build_id"`
	ObjectType string    `json:"object_type"`
	Name       string    `json:"name,omitempty"`
	Outcome    string    `json:"outcome"`
	Status     string    `json:"status,omitempty"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
	ObjectPath string    `json:"object_path,omitempty"`
	Requester  string    `json:"requester,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// BuildLogFilter narrows ListBuilds. Empty fields match everything.
type BuildLogFilter struct {
	ObjectType string
	Outcome    string
	Limit      int
	Offset     int
}

func (f BuildLogFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store is the persistence sink plus the read side used by the API.
type Store interface {
	core.Sink

	// GetObject returns the object at path, or (nil, nil) when absent.
	GetObject(ctx context.Context, path string) (*Object, error)

	// ListObjects returns objects newest first, without their documents.
	ListObjects(ctx context.Context, limit, offset int) ([]Object, error)

	// RecordBuild appends an entry to the build log.
	RecordBuild(ctx context.Context, entry BuildLogEntry) error

	// ListBuilds returns build log entries newest first.
	ListBuilds(ctx context.Context, filter BuildLogFilter) ([]BuildLogEntry, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open connects the backend selected by cfg.Store.Backend and prepares its
// schema. The "none" backend yields a nil Store and no error.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case config.BackendPostgres:
		p, err := NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendSQLite:
		s, err := NewSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newObject assigns identifiers to an object about to be inserted.
func newObject(ctx context.Context, obj core.NewObject) *Object {
	return &Object{
		ID:          uuid.NewString(),
		Path:        obj.Path,
		Name:        obj.Name,
		Description: obj.Description,
		CRS:         obj.CRS,
		ObjectType:  string(obj.ObjectType),
		SchemaID:    obj.SchemaID,
		VersionID:   uuid.NewString(),
		BuildID:     core.BuildIDFromContext(ctx),
		Document:    json.RawMessage(obj.Document),
		CreatedAt:   time.Now().UTC(),
	}
}

func existsError(path string) error {
	return fmt.Errorf("%w: %q", ErrObjectExists, path)
}

// NewBuildLogEntry summarises one finished build for the log. res is nil
// when the build failed with err.
func NewBuildLogEntry(ctx context.Context, req core.BuildRequest, res *core.BuildResult, err error, elapsed time.Duration) BuildLogEntry {
	entry := BuildLogEntry{
		ID:         uuid.NewString(),
		BuildID:    core.BuildIDFromContext(ctx),
		ObjectType: string(req.ObjectType),
		Name:       req.Name,
		Outcome:    string(core.OutcomeFailed),
		Requester:  core.RequesterFromContext(ctx),
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		entry.ErrorCode = core.MapError(err).Code
	}
	if res == nil {
		return entry
	}

	if res.BuildID != "" {
		entry.BuildID = res.BuildID
	}
	entry.Outcome = string(res.Outcome)
	if res.Report != nil {
		entry.Status = string(res.Report.Status)
		entry.Errors = res.Report.Count(core.SeverityError)
		entry.Warnings = res.Report.Count(core.SeverityWarning)
	}
	if res.Object != nil {
		entry.ObjectPath = res.Object.Path
	}
	return entry
}
