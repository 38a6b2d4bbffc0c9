package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
)

func newRecord(createdAt time.Time) *run.Record {
	m := run.NewManifest(run.KindSimulate, SmallPopulation(), QuickSimulation(), "test")
	m.CreatedAt = createdAt
	return &run.Record{
		Manifest:  *m,
		Summaries: []stats.Summary{{Mode: stats.ModeNone, Trials: 20, Mean: 1.9}},
		Trials:    [][]stats.TrialResult{{{Trial: 0, Slope: 1.9}}},
	}
}

func TestInMemoryRunRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewTestKit().RunRepository()

	rec := newRecord(time.Now())
	require.NoError(t, repo.SaveRun(ctx, rec))

	got, err := repo.GetRun(ctx, rec.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	got.Summaries[0].Mean = 0
	got.Trials[0][0].Slope = 0
	again, err := repo.GetRun(ctx, rec.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1.9, again.Summaries[0].Mean, "stored copy is isolated")
	assert.Equal(t, 1.9, again.Trials[0][0].Slope)
}

func TestInMemoryRunRepository_NotFound(t *testing.T) {
	repo := NewInMemoryRunRepository()
	_, err := repo.GetRun(context.Background(), core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestInMemoryRunRepository_RejectsInvalidManifest(t *testing.T) {
	rec := newRecord(time.Now())
	rec.Manifest.Simulation.Trials = 999
	err := NewInMemoryRunRepository().SaveRun(context.Background(), rec)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestInMemoryRunRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRunRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []core.RunID
	for i := 0; i < 3; i++ {
		rec := newRecord(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, rec.Manifest.RunID)
		require.NoError(t, repo.SaveRun(ctx, rec))
	}

	list, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].RunID)
	assert.Equal(t, ids[0], list[2].RunID)

	list, err = repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 3, repo.Len())
}
