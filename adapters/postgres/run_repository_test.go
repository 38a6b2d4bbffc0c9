package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/migration"
	"linkbias/internal/testkit"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"), PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return db
}

func sampleRecord(createdAt time.Time) *run.Record {
	m := run.NewManifest(run.KindCompare, testkit.SmallPopulation(), testkit.QuickSimulation(), "test")
	m.CreatedAt = createdAt.UTC()
	m.WithModes([]stats.CorrectionMode{stats.ModeNone, stats.ModeRescale})
	coverage := 0.9
	return &run.Record{
		Manifest: *m,
		Summaries: []stats.Summary{
			{Mode: stats.ModeNone, Precision: 0.95, Trials: 2, Failed: 1, Mean: 1.9, Coverage: &coverage},
			{Mode: stats.ModeRescale, Precision: 0.95, Trials: 2, Mean: 2.0},
		},
		Trials: [][]stats.TrialResult{
			{
				{Trial: 0, Mode: stats.ModeNone, Slope: 1.9, Intercept: 0.1, SlopeCI: &stats.Interval{Lower: 1.8, Upper: 2.0},
					SampleSize: 500, Retained: 500, Mismatched: 25},
				{Trial: 1, Mode: stats.ModeNone, SampleSize: 500, Error: "fit failure: ols: constant x"},
			},
			{
				{Trial: 0, Mode: stats.ModeRescale, Slope: 2.0, SampleSize: 500, Retained: 500, Mismatched: 25},
				{Trial: 1, Mode: stats.ModeRescale, Slope: 2.1, SampleSize: 500, Retained: 500, Mismatched: 24},
			},
		},
		RuntimeMs: 42,
	}
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
	}{
		{"postgres://u:p@localhost/linkbias?sslmode=disable", DriverPostgres, "postgres://u:p@localhost/linkbias?sslmode=disable"},
		{"host=localhost dbname=linkbias", DriverPostgres, "host=localhost dbname=linkbias"},
		{"sqlite://runs.db", DriverSQLite, "runs.db"},
		{"sqlite::memory:", DriverSQLite, ":memory:"},
		{"/tmp/linkbias.db", DriverSQLite, "/tmp/linkbias.db"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := DriverFor(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}

	_, _, err := DriverFor("mysql://nope")
	assert.Error(t, err)
}

func TestRunRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t))

	rec := sampleRecord(time.Now())
	require.NoError(t, repo.SaveRun(ctx, rec))

	got, err := repo.GetRun(ctx, rec.Manifest.RunID)
	require.NoError(t, err)

	assert.True(t, rec.Manifest.CreatedAt.Equal(got.Manifest.CreatedAt))
	got.Manifest.CreatedAt = rec.Manifest.CreatedAt
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, got.Manifest.Validate())
	assert.True(t, got.Trials[0][1].Failed())
}

func TestRunRepository_NotFound(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	_, err := repo.GetRun(context.Background(), core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestRunRepository_DuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRunRepository(db)

	rec := sampleRecord(time.Now())
	require.NoError(t, repo.SaveRun(ctx, rec))
	assert.Error(t, repo.SaveRun(ctx, rec))

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM simulation_trials`))
	assert.Equal(t, 4, n)
}

func TestRunRepository_RejectsTamperedManifest(t *testing.T) {
	rec := sampleRecord(time.Now())
	rec.Manifest.Simulation.Seed++
	err := NewRunRepository(openTestDB(t)).SaveRun(context.Background(), rec)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []core.RunID
	for i := 0; i < 3; i++ {
		rec := sampleRecord(base.Add(time.Duration(i) * time.Hour))
		rec.Trials = nil
		require.NoError(t, repo.SaveRun(ctx, rec))
		ids = append(ids, rec.Manifest.RunID)
	}

	all, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].RunID)
	assert.Equal(t, ids[0], all[2].RunID)

	limited, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMigration_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, migration.NewRunner().Run(context.Background(), db))
}
