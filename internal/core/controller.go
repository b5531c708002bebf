package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/geobuild/internal/logging"
	"github.com/google/uuid"
)

// NewObject is what the controller hands to the persistence sink.
type NewObject struct {
	Path        string
	Name        string
	Description string
	CRS         string
	ObjectType  ObjectType
	SchemaID    string
	Document    []byte // JSON content document
}

// ObjectRecord is the sink's acknowledgement of a created object.
type ObjectRecord struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	VersionID string    `json:"version_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink persists finished objects. Implementations assign identifiers and
// versions; the controller calls CreateObject at most once per build and
// never retries.
type Sink interface {
	CreateObject(ctx context.Context, obj NewObject) (*ObjectRecord, error)
}

// Outcome describes what happened to a draft at the end of a build.
type Outcome string

const (
	OutcomeDryRun   Outcome = "dry_run"  // validated or not, persistence skipped
	OutcomeCreated  Outcome = "created"  // persisted by the sink
	OutcomeRejected Outcome = "rejected" // validation failed, nothing persisted
	OutcomeFailed   Outcome = "failed"   // fatal error, no draft
)

// BuildResult is the product of one build request.
type BuildResult struct {
	BuildID string            `json:"build_id"`
	Outcome Outcome           `json:"outcome"`
	Draft   *ObjectDraft      `json:"-"`
	Report  *ValidationReport `json:"report"`
	Object  *ObjectRecord     `json:"object,omitempty"`
}

// BuildObserver is notified once per finished build.
type BuildObserver interface {
	ObserveBuild(t ObjectType, outcome Outcome, elapsed time.Duration, report *ValidationReport)
}

// Controller runs load → resolve → build → validate → persist for one
// request at a time. It holds no per-request state, so one Controller can
// serve concurrent builds.
type Controller struct {
	files    FileSource
	sink     Sink
	load     LoadOptions
	observer BuildObserver
	newID    func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLoadOptions sets the table loading options.
func WithLoadOptions(opts LoadOptions) Option {
	return func(c *Controller) { c.load = opts }
}

// WithObserver registers a build observer (metrics).
func WithObserver(o BuildObserver) Option {
	return func(c *Controller) { c.observer = o }
}

// NewBuildID returns a fresh build identifier.
func NewBuildID() string { return uuid.New().String() }

// NewController creates a Controller. sink may be nil when only dry runs
// will be requested.
func NewController(files FileSource, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		files: files,
		sink:  sink,
		newID: NewBuildID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build executes one request. Malformed input, unresolved columns and
// sink failures are returned as errors; validation findings are returned
// in the result's report and never as errors.
//
// A build id already present in ctx is reused, so callers that log or
// record the build themselves can tag it before calling Build.
func (c *Controller) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	buildID := BuildIDFromContext(ctx)
	if buildID == "" {
		buildID = c.newID()
		ctx = ContextWithBuildID(ctx, buildID)
	}
	logger := logging.WithFields(ctx,
		"build_id", buildID,
		"object_type", req.ObjectType,
		"dry_run", req.DryRun,
	)

	result, err := c.run(ctx, buildID, req)
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn("build failed", "error", err, "duration_ms", elapsed.Milliseconds())
		c.observe(req.ObjectType, OutcomeFailed, elapsed, nil)
		return nil, err
	}

	logger.Info("build finished",
		"outcome", result.Outcome,
		"status", result.Report.Status,
		"errors", result.Report.Count(SeverityError),
		"warnings", result.Report.Count(SeverityWarning),
		"duration_ms", elapsed.Milliseconds(),
	)
	c.observe(req.ObjectType, result.Outcome, elapsed, result.Report)
	return result, nil
}

func (c *Controller) run(ctx context.Context, buildID string, req BuildRequest) (*BuildResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	def, ok := Get(req.ObjectType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, req.ObjectType)
	}

	mapping, err := DecodeMapping(req.ObjectType, req.ColumnMapping)
	if err != nil {
		return nil, err
	}

	tables, err := c.loadTables(ctx, req.CSVFiles)
	if err != nil {
		return nil, err
	}

	resolved, err := ResolveMapping(mapping, tables)
	if err != nil {
		return nil, err
	}

	content, err := def.Build(resolved)
	if err != nil {
		return nil, err
	}

	draft := &ObjectDraft{
		ObjectType:  def.Type,
		SchemaID:    def.SchemaID,
		Name:        req.Name,
		Description: req.Description,
		CRS:         req.crs(),
		Content:     content,
	}
	report := Validate(draft)

	result := &BuildResult{
		BuildID: buildID,
		Draft:   draft,
		Report:  report,
	}

	switch {
	case req.DryRun:
		result.Outcome = OutcomeDryRun
		return result, nil
	case !report.Validated():
		result.Outcome = OutcomeRejected
		return result, nil
	}

	record, err := c.persist(ctx, draft, req.objectPath())
	if err != nil {
		return nil, err
	}
	result.Outcome = OutcomeCreated
	result.Object = record
	return result, nil
}

// loadTables loads every file role in sorted order. Each file is opened
// and closed inside LoadTableFile.
func (c *Controller) loadTables(ctx context.Context, files FileRoles) (TableSet, error) {
	roles := make([]string, 0, len(files))
	for role := range files {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	tables := make(TableSet, len(roles))
	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := LoadTableFile(c.files, files[role], role, c.load)
		if err != nil {
			return nil, err
		}
		logging.FromContext(ctx).Debug("table loaded",
			"role", role,
			"path", files[role],
			"rows", t.Len(),
			"columns", len(t.Columns),
		)
		tables[role] = t
	}
	return tables, nil
}

func (c *Controller) persist(ctx context.Context, draft *ObjectDraft, path string) (*ObjectRecord, error) {
	if c.sink == nil {
		return nil, &PersistenceError{Err: errors.New("no persistence sink configured")}
	}

	doc, err := draft.Document()
	if err != nil {
		return nil, fmt.Errorf("encode object document: %w", err)
	}

	record, err := c.sink.CreateObject(ctx, NewObject{
		Path:        path,
		Name:        draft.Name,
		Description: draft.Description,
		CRS:         draft.CRS,
		ObjectType:  draft.ObjectType,
		SchemaID:    draft.SchemaID,
		Document:    doc,
	})
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return record, nil
}

func (c *Controller) observe(t ObjectType, outcome Outcome, elapsed time.Duration, report *ValidationReport) {
	if c.observer != nil {
		c.observer.ObserveBuild(t, outcome, elapsed, report)
	}
}

// Response is the caller-facing summary of a build.
type Response struct {
	BuildID    string       `json:"build_id"`
	Status     ReportStatus `json:"status"`
	Outcome    Outcome      `json:"outcome"`
	ObjectName string       `json:"object_name"`
	Schema     string       `json:"schema"`
	Messages   []Message    `json:"messages"`
	ID         string       `json:"id,omitempty"`
	Path       string       `json:"path,omitempty"`
	VersionID  string       `json:"version_id,omitempty"`
}

// Response flattens the result for JSON output.
func (r *BuildResult) Response() Response {
	resp := Response{
		BuildID:    r.BuildID,
		Status:     r.Report.Status,
		Outcome:    r.Outcome,
		ObjectName: r.Draft.Name,
		Schema:     r.Draft.SchemaID,
		Messages:   r.Report.Messages,
	}
	if r.Object != nil {
		resp.ID = r.Object.ID
		resp.Path = r.Object.Path
		resp.VersionID = r.Object.VersionID
	}
	return resp
}
