package run

import (
	"fmt"
	"time"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// Manifest is the complete description of a run. Replaying a manifest with the
// same code version reproduces every trial.
type Manifest struct {
	RunID       core.RunID             `json:"run_id"`
	Kind        Kind                   `json:"kind"`
	Population  PopulationParams       `json:"population"`
	Simulation  SimulationParams       `json:"simulation"`
	Modes       []stats.CorrectionMode `json:"modes,omitempty"`
	Cutoffs     []int                  `json:"cutoffs,omitempty"`
	Precisions  []float64              `json:"precisions,omitempty"`
	CodeVersion string                 `json:"code_version"`
	Fingerprint core.Hash              `json:"fingerprint"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Kind distinguishes single-mode runs from comparisons and sweeps.
type Kind string

const (
	KindSimulate       Kind = "simulate"
	KindCompare        Kind = "compare"
	KindSweepCutoff    Kind = "sweep-cutoff"
	KindSweepPrecision Kind = "sweep-precision"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSimulate, KindCompare, KindSweepCutoff, KindSweepPrecision:
		return k, nil
	case "":
		return KindSimulate, nil
	default:
		return "", core.NewConfigError("kind", fmt.Sprintf("unknown run kind %q", s))
	}
}

// NewManifest creates a manifest for a fresh run. Grids are set with
// WithCutoffs / WithPrecisions before the fingerprint is sealed.
func NewManifest(kind Kind, pop PopulationParams, sim SimulationParams, codeVersion string) *Manifest {
	m := &Manifest{
		RunID:       core.NewRunID(),
		Kind:        kind,
		Population:  pop,
		Simulation:  sim,
		CodeVersion: codeVersion,
		CreatedAt:   time.Now().UTC(),
	}
	m.Seal()
	return m
}

// WithModes sets the compared modes and reseals.
func (m *Manifest) WithModes(modes []stats.CorrectionMode) *Manifest {
	m.Modes = modes
	m.Seal()
	return m
}

// WithCutoffs sets the cutoff grid and reseals.
func (m *Manifest) WithCutoffs(cutoffs []int) *Manifest {
	m.Cutoffs = cutoffs
	m.Seal()
	return m
}

// WithPrecisions sets the precision grid and reseals.
func (m *Manifest) WithPrecisions(precisions []float64) *Manifest {
	m.Precisions = precisions
	m.Seal()
	return m
}

// Seal recomputes the fingerprint.
func (m *Manifest) Seal() {
	m.Fingerprint = m.ComputeFingerprint()
}

// ComputeFingerprint hashes every parameter that influences trial outcomes.
// Worker count is not part of it: it never changes results.
func (m *Manifest) ComputeFingerprint() core.Hash {
	modes := make([]string, len(m.Modes))
	for i, mode := range m.Modes {
		modes[i] = string(mode)
	}
	pop, sim := m.Population, m.Simulation
	return core.HashParams(map[string]interface{}{
		"kind":           m.Kind,
		"pop.size":       pop.Size,
		"pop.intercept":  pop.Intercept,
		"pop.slope":      pop.Slope,
		"pop.x_mean":     pop.XMean,
		"pop.x_sd":       pop.XSD,
		"pop.noise_sd":   pop.NoiseSD,
		"pop.seed":       pop.Seed,
		"pop.file":       pop.File,
		"sim.trials":     sim.Trials,
		"sim.n":          sim.SampleSize,
		"sim.precision":  sim.Precision,
		"sim.mode":       sim.Mode,
		"sim.cutoff":     sim.Cutoff,
		"sim.center":     sim.Center,
		"sim.confidence": sim.Confidence,
		"sim.seed":       sim.Seed,
		"grid.modes":     modes,
		"grid.cutoffs":   m.Cutoffs,
		"grid.precision": m.Precisions,
		"code":           m.CodeVersion,
	})
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewConfigError("manifest.run_id", "cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewConfigError("manifest.code_version", "cannot be empty")
	}
	if _, err := ParseKind(string(m.Kind)); err != nil {
		return err
	}
	if err := m.Population.Validate(); err != nil {
		return err
	}
	if err := m.Simulation.Validate(); err != nil {
		return err
	}
	if m.Fingerprint != m.ComputeFingerprint() {
		return fmt.Errorf("%w: manifest %s fingerprint does not match parameters", core.ErrInvalidConfig, m.RunID)
	}
	return nil
}
