// Package service runs build requests on behalf of the HTTP API and the
// CLI. It wraps core.Controller with the concerns a single build does not
// own: bounded concurrency, the per-build timeout, the build log and the
// read side of the object store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/JonMunkholm/geobuild/internal/logging"
	"github.com/JonMunkholm/geobuild/internal/store"
)

// ErrNoStore is returned by read operations when persistence is disabled.
var ErrNoStore = errors.New("no object store configured")

// ObjectTypeInfo describes a buildable object type for listings.
type ObjectTypeInfo struct {
	Type     core.ObjectType `json:"object_type"`
	Label    string          `json:"label"`
	SchemaID string          `json:"schema"`
	Files    []string        `json:"csv_files"`
}

// Service provides build, preview and listing operations.
type Service struct {
	controller *core.Controller
	store      store.Store
	files      core.FileSource
	load       core.LoadOptions
	limiter    *core.BuildLimiter
	timeout    time.Duration
}

// Option configures a Service.
type Option func(*options)

type options struct {
	observer core.BuildObserver
	files    core.FileSource
}

// WithObserver reports every finished build to o.
func WithObserver(o core.BuildObserver) Option {
	return func(opts *options) { opts.observer = o }
}

// WithFiles replaces the data-directory file source.
func WithFiles(fs core.FileSource) Option {
	return func(opts *options) { opts.files = fs }
}

// New creates a Service. st may be nil, in which case only dry runs can
// succeed and the listing operations return ErrNoStore.
func New(cfg config.BuildConfig, st store.Store, opts ...Option) *Service {
	o := options{files: core.DirSource{Root: cfg.DataDir}}
	for _, opt := range opts {
		opt(&o)
	}

	load := core.LoadOptions{
		SampleRows: cfg.SampleRows,
		MaxBytes:   cfg.MaxFileSize,
	}
	ctrlOpts := []core.Option{core.WithLoadOptions(load)}
	if o.observer != nil {
		ctrlOpts = append(ctrlOpts, core.WithObserver(o.observer))
	}

	var sink core.Sink
	if st != nil {
		sink = st
	}

	return &Service{
		controller: core.NewController(o.files, sink, ctrlOpts...),
		store:      st,
		files:      o.files,
		load:       load,
		limiter:    core.NewBuildLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		timeout:    cfg.Timeout,
	}
}

// Build runs one request under a limiter slot and the build timeout, then
// appends the outcome to the build log. Logging failures are reported but
// never change the build result.
func (s *Service) Build(ctx context.Context, req core.BuildRequest) (*core.BuildResult, error) {
	if core.BuildIDFromContext(ctx) == "" {
		ctx = core.ContextWithBuildID(ctx, core.NewBuildID())
	}
	start := time.Now()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.record(ctx, req, nil, err, time.Since(start))
		return nil, err
	}
	defer s.limiter.Release()

	buildCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.run(buildCtx, req)
	s.record(ctx, req, res, err, time.Since(start))
	return res, err
}

// run converts a builder panic into an error so the slot is always
// released and the build is still logged.
func (s *Service) run(ctx context.Context, req core.BuildRequest) (res *core.BuildResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("panic in build",
				"build_id", core.BuildIDFromContext(ctx),
				"object_type", req.ObjectType,
				"panic", r,
			)
			res, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	return s.controller.Build(ctx, req)
}

func (s *Service) record(ctx context.Context, req core.BuildRequest, res *core.BuildResult, err error, elapsed time.Duration) {
	if s.store == nil {
		return
	}
	entry := store.NewBuildLogEntry(ctx, req, res, err, elapsed)
	// The request may already be cancelled; the log entry is still wanted.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := s.store.RecordBuild(logCtx, entry); rerr != nil {
		logging.FromContext(ctx).Warn("failed to record build",
			"build_id", entry.BuildID,
			"error", rerr,
		)
	}
}

// Preview loads one file and summarises it.
func (s *Service) Preview(path, role string, rows int) (*core.TablePreview, error) {
	return core.PreviewTableFile(s.files, path, role, rows, s.load)
}

// ObjectTypes lists the registered object types.
func (s *Service) ObjectTypes() []ObjectTypeInfo {
	return ObjectTypes()
}

// ObjectTypes lists the registered object types without a Service.
func ObjectTypes() []ObjectTypeInfo {
	defs := core.All()
	infos := make([]ObjectTypeInfo, len(defs))
	for i, def := range defs {
		infos[i] = ObjectTypeInfo{
			Type:     def.Type,
			Label:    def.Label,
			SchemaID: def.SchemaID,
			Files:    def.Files,
		}
	}
	return infos
}

// GetObject returns the stored object at path, or (nil, nil) when absent.
func (s *Service) GetObject(ctx context.Context, path string) (*store.Object, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetObject(ctx, path)
}

// ListObjects returns stored objects newest first.
func (s *Service) ListObjects(ctx context.Context, limit, offset int) ([]store.Object, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListObjects(ctx, limit, offset)
}

// ListBuilds returns build log entries newest first.
func (s *Service) ListBuilds(ctx context.Context, f store.BuildLogFilter) ([]store.BuildLogEntry, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListBuilds(ctx, f)
}

// StoreStatus reports "disabled", "ok" or "unavailable".
func (s *Service) StoreStatus(ctx context.Context) string {
	if s.store == nil {
		return "disabled"
	}
	if err := s.store.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("store ping failed", "error", err)
		return "unavailable"
	}
	return "ok"
}

// Limiter exposes the build limiter for metrics.
func (s *Service) Limiter() *core.BuildLimiter {
	return s.limiter
}

// LimiterStatus returns the current limiter state.
func (s *Service) LimiterStatus() core.BuildLimiterStatus {
	return s.limiter.Status()
}

// WaitForBuilds blocks until in-flight builds finish or ctx is done.
func (s *Service) WaitForBuilds(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
