package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbias/app"
	"linkbias/domain/run"
	"linkbias/internal/config"
	"linkbias/internal/testkit"
)

func testConfig(dbURL string) *config.Config {
	return &config.Config{
		Database:   config.DatabaseConfig{URL: dbURL},
		Simulation: config.SimulationConfig{Workers: 2, MaxConcurrentRuns: 1},
		LogLevel:   "ERROR",
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_WithoutDatabase(t *testing.T) {
	c, err := New(testConfig(""))
	require.NoError(t, err)
	assert.Nil(t, c.DB)
	assert.IsType(t, &testkit.InMemoryRunRepository{}, c.RunRepo)
	assert.NotNil(t, c.Simulation)
	assert.Error(t, c.InitWithDatabase(context.Background()))
	assert.NoError(t, c.Close())
}

func TestInitWithDatabase_PersistsRuns(t *testing.T) {
	ctx := context.Background()
	c, err := New(testConfig(filepath.Join(t.TempDir(), "linkbias.db")))
	require.NoError(t, err)
	require.NoError(t, c.InitWithDatabase(ctx))
	defer c.Close()

	rec, err := c.Simulation.Execute(ctx, app.SimulationRequest{
		Kind:       run.KindSimulate,
		Population: testkit.SmallPopulation(),
		Simulation: testkit.QuickSimulation(),
	})
	require.NoError(t, err)

	got, err := c.Simulation.Get(ctx, rec.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Summaries, got.Summaries)
}
