package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/core"
	_ "github.com/JonMunkholm/geobuild/internal/core/objects"
	"github.com/JonMunkholm/geobuild/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointsCSV = "X,Y,Z,AU\n1,2,3,\n4,5,6,\n"

func buildConfig(dir string) config.BuildConfig {
	return config.BuildConfig{
		DataDir:       dir,
		MaxFileSize:   1 << 20,
		SampleRows:    100,
		MaxConcurrent: 2,
		MaxWaitTime:   time.Second,
		Timeout:       time.Minute,
	}
}

func newTestService(t *testing.T, withStore bool) (*Service, store.Store) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "points.csv"), []byte(pointsCSV), 0o644))

	var st store.Store
	if withStore {
		s, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		st = s
	}
	return New(buildConfig(dir), st), st
}

func pointsRequest(dryRun bool) core.BuildRequest {
	return core.BuildRequest{
		ObjectType:    core.ObjectPointset,
		CSVFiles:      core.FileRoles{"points": "points.csv"},
		ColumnMapping: json.RawMessage(`{"x":"X","y":"Y","z":"Z","attributes":["AU"]}`),
		Name:          "samples",
		DryRun:        dryRun,
	}
}

func TestBuild_CreatesAndLogs(t *testing.T) {
	svc, st := newTestService(t, true)
	ctx := core.ContextWithRequester(context.Background(), "cli:tester")

	res, err := svc.Build(ctx, pointsRequest(false))
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCreated, res.Outcome)
	require.NotNil(t, res.Object)
	assert.Equal(t, "/samples.json", res.Object.Path)

	obj, err := svc.GetObject(ctx, "/samples.json")
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, res.BuildID, obj.BuildID)

	builds, err := st.ListBuilds(ctx, store.BuildLogFilter{})
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "created", builds[0].Outcome)
	assert.Equal(t, "cli:tester", builds[0].Requester)
	assert.Equal(t, "/samples.json", builds[0].ObjectPath)
	assert.Equal(t, 1, builds[0].Warnings, "AU has no values")
}

func TestBuild_DuplicatePathFailsAndIsLogged(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.Build(ctx, pointsRequest(false))
	require.NoError(t, err)

	_, err = svc.Build(ctx, pointsRequest(false))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrObjectExists)
	assert.ErrorIs(t, err, core.ErrPersistence)

	failed, err := svc.ListBuilds(ctx, store.BuildLogFilter{Outcome: string(core.OutcomeFailed)})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "STO001", failed[0].ErrorCode)
	assert.NotEmpty(t, failed[0].BuildID)
}

func TestBuild_WithoutStore(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()

	res, err := svc.Build(ctx, pointsRequest(true))
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeDryRun, res.Outcome)
	assert.Nil(t, res.Object)

	_, err = svc.Build(ctx, pointsRequest(false))
	assert.ErrorIs(t, err, core.ErrPersistence)

	_, err = svc.ListObjects(ctx, 10, 0)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.Equal(t, "disabled", svc.StoreStatus(ctx))
}

func TestBuild_ReusesContextBuildID(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := core.ContextWithBuildID(context.Background(), "fixed-id")

	res, err := svc.Build(ctx, pointsRequest(true))
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", res.BuildID)
}

func TestBuild_Busy(t *testing.T) {
	svc, _ := newTestService(t, false)
	svc.limiter = core.NewBuildLimiter(1, 20*time.Millisecond)
	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()

	_, err := svc.Build(context.Background(), pointsRequest(true))
	assert.ErrorIs(t, err, core.ErrTooManyBuilds)
}

func TestPreview(t *testing.T) {
	svc, _ := newTestService(t, false)

	p, err := svc.Preview("points.csv", "points", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalRows)
	assert.Len(t, p.Rows, 1)
	require.Len(t, p.Columns, 4)
	assert.Equal(t, "X", p.Columns[0].Name)

	_, err = svc.Preview("../etc/passwd", "points", 1)
	require.Error(t, err)
	assert.Equal(t, "FILE006", core.MapError(err).Code)
}

func TestObjectTypes(t *testing.T) {
	svc, _ := newTestService(t, false)
	types := svc.ObjectTypes()
	require.Len(t, types, 4)

	var names []core.ObjectType
	for _, ti := range types {
		names = append(names, ti.Type)
		assert.NotEmpty(t, ti.SchemaID)
		assert.NotEmpty(t, ti.Files)
	}
	assert.Equal(t, []core.ObjectType{
		core.ObjectDownholeCollection,
		core.ObjectDownholeIntervals,
		core.ObjectLineSegments,
		core.ObjectPointset,
	}, names)
}
