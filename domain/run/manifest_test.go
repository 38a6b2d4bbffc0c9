package run

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

func TestManifest_FingerprintIgnoresIdentity(t *testing.T) {
	a := NewManifest(KindSimulate, DefaultPopulationParams(), DefaultSimulationParams(), "v1")
	b := NewManifest(KindSimulate, DefaultPopulationParams(), DefaultSimulationParams(), "v1")

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	require.NoError(t, a.Validate())
}

func TestManifest_FingerprintTracksParameters(t *testing.T) {
	base := NewManifest(KindSimulate, DefaultPopulationParams(), DefaultSimulationParams(), "v1")

	sim := DefaultSimulationParams()
	sim.Seed++
	assert.NotEqual(t, base.Fingerprint, NewManifest(KindSimulate, DefaultPopulationParams(), sim, "v1").Fingerprint)

	pop := DefaultPopulationParams()
	pop.Slope = 3
	assert.NotEqual(t, base.Fingerprint, NewManifest(KindSimulate, pop, DefaultSimulationParams(), "v1").Fingerprint)

	assert.NotEqual(t, base.Fingerprint, NewManifest(KindSimulate, DefaultPopulationParams(), DefaultSimulationParams(), "v2").Fingerprint)

	swept := NewManifest(KindSweepCutoff, DefaultPopulationParams(), DefaultSimulationParams(), "v1").WithCutoffs([]int{950, 1000})
	other := NewManifest(KindSweepCutoff, DefaultPopulationParams(), DefaultSimulationParams(), "v1").WithCutoffs([]int{900})
	assert.NotEqual(t, swept.Fingerprint, other.Fingerprint)
}

func TestManifest_ValidateDetectsTampering(t *testing.T) {
	m := NewManifest(KindCompare, DefaultPopulationParams(), DefaultSimulationParams(), "v1").
		WithModes(stats.AllModes())
	require.NoError(t, m.Validate())

	m.Simulation.Trials = 5
	assert.ErrorIs(t, m.Validate(), core.ErrInvalidConfig)
}

func TestManifest_JSONRoundTripKeepsFingerprint(t *testing.T) {
	m := NewManifest(KindSweepPrecision, DefaultPopulationParams(), DefaultSimulationParams(), "v1").
		WithPrecisions([]float64{1, 0.95, 0.9})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	var back Manifest
	require.NoError(t, json.Unmarshal(data, &back))

	assert.NoError(t, back.Validate())
	assert.Equal(t, m.Fingerprint, back.ComputeFingerprint())
}

func TestParams_Validate(t *testing.T) {
	pop := DefaultPopulationParams()
	pop.XSD = 0
	assert.ErrorIs(t, pop.Validate(), core.ErrInvalidConfig)

	sim := DefaultSimulationParams()
	sim.Precision = -0.1
	assert.ErrorIs(t, sim.Validate(), core.ErrInvalidPrecision)

	sim = DefaultSimulationParams()
	sim.Mode = stats.ModeInfluenceTrim
	sim.Cutoff = 0
	assert.ErrorIs(t, sim.Validate(), core.ErrInvalidConfig)

	sim = DefaultSimulationParams()
	sim.Mode = "bootstrap"
	assert.ErrorIs(t, sim.Validate(), core.ErrInvalidConfig)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindSimulate, k)

	_, err = ParseKind("replay")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
