package objects

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/geobuild/internal/core"
)

func segmentFiles(segments string) memFiles {
	return memFiles{"vertices": verticesCSV, "segments": segments}
}

func TestBuild_DryRunNeverPersists(t *testing.T) {
	for _, segments := range []string{"START,END\n0,1\n", "START,END\n0,9\n"} {
		files := segmentFiles(segments)
		sink := &spySink{}

		res, err := runBuild(t, files, request(core.ObjectLineSegments, files, lineMapping, true), sink)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if res.Outcome != core.OutcomeDryRun {
			t.Errorf("outcome = %s, want dry_run", res.Outcome)
		}
		if sink.count() != 0 {
			t.Errorf("sink called %d times on dry run", sink.count())
		}
	}
}

func TestBuild_RealRunPersistsOnce(t *testing.T) {
	files := segmentFiles("START,END\n0,1\n1,2\n")
	sink := &spySink{}
	req := request(core.ObjectLineSegments, files, lineMapping, false)
	req.Description = "fault traces"
	req.CRS = "EPSG:28350"

	res, err := runBuild(t, files, req, sink)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("sink called %d times, want 1", sink.count())
	}
	if res.Outcome != core.OutcomeCreated || res.Object == nil || res.Object.ID != "obj-1" {
		t.Errorf("result = %+v", res)
	}

	obj := sink.calls[0]
	if obj.Path != "/test object.json" {
		t.Errorf("path = %q, want default path", obj.Path)
	}
	if obj.SchemaID != LineSegmentsSchema || obj.CRS != "EPSG:28350" {
		t.Errorf("object metadata = %+v", obj)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(obj.Document, &doc); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	for _, key := range []string{"schema", "name", "description", "crs", "vertices", "segments"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document missing key %q", key)
		}
	}

	resp := res.Response()
	if resp.Status != core.StatusValidated || resp.VersionID != "v1" || resp.Schema != LineSegmentsSchema {
		t.Errorf("response = %+v", resp)
	}
}

func TestBuild_FailedValidationIsRejected(t *testing.T) {
	files := segmentFiles("START,END\n0,5\n")
	sink := &spySink{}

	res, err := runBuild(t, files, request(core.ObjectLineSegments, files, lineMapping, false), sink)
	if err != nil {
		t.Fatalf("rejection must not be an error, got %v", err)
	}
	if res.Outcome != core.OutcomeRejected {
		t.Errorf("outcome = %s, want rejected", res.Outcome)
	}
	if sink.count() != 0 {
		t.Errorf("sink called %d times for a failed report", sink.count())
	}
	if len(res.Report.ErrorMessages()) != 1 {
		t.Errorf("messages = %+v", res.Report.Messages)
	}
}

func TestBuild_PersistenceFailureSurfaces(t *testing.T) {
	files := segmentFiles("START,END\n0,1\n")
	sinkErr := errors.New(`object "/x.json" already exists`)
	sink := &spySink{err: sinkErr}

	res, err := runBuild(t, files, request(core.ObjectLineSegments, files, lineMapping, false), sink)
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, core.ErrPersistence) || !errors.Is(err, sinkErr) {
		t.Errorf("error = %v, want persistence failure wrapping the sink error", err)
	}
	if sink.count() != 1 {
		t.Errorf("sink called %d times, want exactly 1 (no retry)", sink.count())
	}
	if got := core.MapError(err).Code; got != "STO001" {
		t.Errorf("MapError code = %s, want STO001", got)
	}
}

func TestBuild_NoSinkConfigured(t *testing.T) {
	files := segmentFiles("START,END\n0,1\n")
	_, err := runBuild(t, files, request(core.ObjectLineSegments, files, lineMapping, false), nil)
	if !errors.Is(err, core.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
}

func TestBuild_DryRunReportsAreIdentical(t *testing.T) {
	survey := "HOLEID,DEPTH,AZI,DIP\nH1,10,90,-60\nH1,5,400,-60\nH8,0,0,0\n"
	lith := "HOLEID,FROM,TO,ROCK\nH1,0,10,\nH1,5,12,\nH2,3,1,\nH7,0,1,\n"
	assay := "HOLEID,FROM,TO,AU\nH9,0,1,0.1\nH1,0,1,0.5\n"
	files := collectionFiles(survey, lith, assay)
	req := request(core.ObjectDownholeCollection, files, collectionMapping, true)

	var reports [][]byte
	for i := 0; i < 5; i++ {
		res := mustBuild(t, files, req)
		b, err := json.Marshal(res.Report)
		if err != nil {
			t.Fatalf("marshal report: %v", err)
		}
		reports = append(reports, b)
	}
	for i := 1; i < len(reports); i++ {
		if !bytes.Equal(reports[0], reports[i]) {
			t.Fatalf("report %d differs:\n%s\n%s", i, reports[0], reports[i])
		}
	}

	var report core.ValidationReport
	_ = json.Unmarshal(reports[0], &report)
	if report.Status != core.StatusFailed || len(report.Messages) < 5 {
		t.Errorf("expected a failed report with many findings, got %s with %d", report.Status, len(report.Messages))
	}
}

func TestBuild_RequestErrors(t *testing.T) {
	files := segmentFiles("START,END\n0,1\n")

	tests := []struct {
		name     string
		mutate   func(*core.BuildRequest)
		wantCode string
	}{
		{"unknown object type", func(r *core.BuildRequest) { r.ObjectType = "surface" }, "MAP003"},
		{"missing name", func(r *core.BuildRequest) { r.Name = " " }, "REQ005"},
		{"missing mapping", func(r *core.BuildRequest) { r.ColumnMapping = nil }, "REQ005"},
		{"missing file", func(r *core.BuildRequest) { r.CSVFiles["segments"] = "nowhere.csv" }, "FILE004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(core.ObjectLineSegments, files, lineMapping, true)
			tt.mutate(&req)
			_, err := runBuild(t, files, req, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := core.MapError(err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v) = %s, want %s", err, got, tt.wantCode)
			}
		})
	}
}

// countingObserver records outcomes reported by the controller.
type countingObserver struct {
	outcomes []core.Outcome
}

func (o *countingObserver) ObserveBuild(_ core.ObjectType, outcome core.Outcome, _ time.Duration, _ *core.ValidationReport) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestBuild_ObserverSeesEveryOutcome(t *testing.T) {
	obs := &countingObserver{}
	sink := &spySink{}
	ctx := context.Background()

	good := segmentFiles("START,END\n0,1\n")
	bad := segmentFiles("START,END\n0,7\n")
	broken := segmentFiles("START,END\n0,x\n")

	for _, run := range []struct {
		files  memFiles
		dryRun bool
	}{{good, true}, {good, false}, {bad, false}, {broken, false}} {
		c := core.NewController(run.files, sink, core.WithObserver(obs))
		_, _ = c.Build(ctx, request(core.ObjectLineSegments, run.files, lineMapping, run.dryRun))
	}

	want := []core.Outcome{core.OutcomeDryRun, core.OutcomeCreated, core.OutcomeRejected, core.OutcomeFailed}
	if len(obs.outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", obs.outcomes, want)
	}
	for i := range want {
		if obs.outcomes[i] != want[i] {
			t.Errorf("outcome %d = %s, want %s", i, obs.outcomes[i], want[i])
		}
	}
}
