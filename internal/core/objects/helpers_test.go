package objects

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// memFiles serves file contents from memory.
type memFiles map[string]string

func (m memFiles) Open(path string) (io.ReadCloser, error) {
	content, ok := m[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// spySink records every CreateObject call.
type spySink struct {
	mu    sync.Mutex
	calls []core.NewObject
	err   error
}

func (s *spySink) CreateObject(_ context.Context, obj core.NewObject) (*core.ObjectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, obj)
	if s.err != nil {
		return nil, s.err
	}
	return &core.ObjectRecord{
		ID:        "obj-1",
		Path:      obj.Path,
		VersionID: "v1",
		CreatedAt: time.Unix(0, 0).UTC(),
	}, nil
}

func (s *spySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// request builds a BuildRequest whose csv_files use the role names as
// paths, so the same memFiles serves both.
func request(t core.ObjectType, files memFiles, mapping string, dryRun bool) core.BuildRequest {
	roles := make(core.FileRoles, len(files))
	for path := range files {
		roles[path] = path
	}
	return core.BuildRequest{
		ObjectType:    t,
		CSVFiles:      roles,
		ColumnMapping: json.RawMessage(mapping),
		Name:          "test object",
		DryRun:        dryRun,
	}
}

func runBuild(t *testing.T, files memFiles, req core.BuildRequest, sink core.Sink) (*core.BuildResult, error) {
	t.Helper()
	c := core.NewController(files, sink)
	return c.Build(context.Background(), req)
}

func mustBuild(t *testing.T, files memFiles, req core.BuildRequest) *core.BuildResult {
	t.Helper()
	res, err := runBuild(t, files, req, &spySink{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return res
}

func codes(r *core.ValidationReport, sev core.Severity) []string {
	var out []string
	for _, m := range r.Messages {
		if m.Severity == sev {
			out = append(out, m.Code)
		}
	}
	return out
}

func countCode(r *core.ValidationReport, code string) int {
	n := 0
	for _, m := range r.Messages {
		if m.Code == code {
			n++
		}
	}
	return n
}

func assertMalformed(t *testing.T, err error, wantLine int, wantColumn string) {
	t.Helper()
	if !errors.Is(err, core.ErrMalformedInput) {
		t.Fatalf("error = %v, want ErrMalformedInput", err)
	}
	var me *core.MalformedInputError
	if !errors.As(err, &me) {
		t.Fatalf("error %T is not a *MalformedInputError", err)
	}
	if wantLine > 0 && me.Line != wantLine {
		t.Errorf("Line = %d, want %d", me.Line, wantLine)
	}
	if wantColumn != "" && me.Column != wantColumn {
		t.Errorf("Column = %q, want %q", me.Column, wantColumn)
	}
}
