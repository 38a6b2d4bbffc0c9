package run

import (
	"math"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// PopulationParams describes the closed-form linear model the population is drawn from:
// y = Intercept + Slope*x + e, x ~ N(XMean, XSD), e ~ N(0, NoiseSD).
// When File is set the population is read from that CSV/XLSX file instead and
// only Slope is used, as the reference slope for bias and coverage.
type PopulationParams struct {
	Size      int     `json:"size" yaml:"size"`
	Intercept float64 `json:"intercept" yaml:"intercept"`
	Slope     float64 `json:"slope" yaml:"slope"`
	XMean     float64 `json:"x_mean" yaml:"x_mean"`
	XSD       float64 `json:"x_sd" yaml:"x_sd"`
	NoiseSD   float64 `json:"noise_sd" yaml:"noise_sd"`
	Seed      int64   `json:"seed" yaml:"seed"`
	File      string  `json:"file,omitempty" yaml:"file,omitempty"`
}

// DefaultPopulationParams mirrors the study setup: beta0 = 1, beta1 = 2, unit noise.
func DefaultPopulationParams() PopulationParams {
	return PopulationParams{
		Size:      100000,
		Intercept: 1,
		Slope:     2,
		XMean:     0,
		XSD:       1,
		NoiseSD:   1,
		Seed:      42,
	}
}

// Validate checks the population parameters.
func (p PopulationParams) Validate() error {
	if p.File != "" {
		return nil
	}
	if p.Size <= 0 {
		return core.NewConfigError("population.size", "must be > 0")
	}
	if p.XSD <= 0 || math.IsNaN(p.XSD) {
		return core.NewConfigError("population.x_sd", "must be > 0")
	}
	if p.NoiseSD < 0 || math.IsNaN(p.NoiseSD) {
		return core.NewConfigError("population.noise_sd", "must be >= 0")
	}
	return nil
}

// SimulationParams are the determinism-relevant simulation settings.
type SimulationParams struct {
	Trials     int                  `json:"trials" yaml:"trials"`
	SampleSize int                  `json:"sample_size" yaml:"sample_size"`
	Precision  float64              `json:"precision" yaml:"precision"`
	Mode       stats.CorrectionMode `json:"mode" yaml:"mode"`
	Cutoff     int                  `json:"cutoff,omitempty" yaml:"cutoff,omitempty"`
	Center     bool                 `json:"center" yaml:"center"`
	Confidence float64              `json:"confidence" yaml:"confidence"`
	Seed       int64                `json:"seed" yaml:"seed"`
}

// DefaultSimulationParams is p = 0.95, n = 1000, 1000 trials, uncorrected OLS.
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		Trials:     1000,
		SampleSize: 1000,
		Precision:  0.95,
		Mode:       stats.ModeNone,
		Cutoff:     stats.DefaultTrimCutoff,
		Confidence: stats.DefaultConfidence,
		Seed:       2024,
	}
}

// Validate checks the simulation parameters.
func (s SimulationParams) Validate() error {
	if s.Trials <= 0 {
		return core.NewConfigError("simulation.trials", "must be > 0")
	}
	if s.SampleSize <= 0 {
		return core.NewConfigError("simulation.sample_size", "must be > 0")
	}
	if math.IsNaN(s.Precision) || s.Precision < 0 || s.Precision > 1 {
		return core.NewInvalidPrecisionError(s.Precision)
	}
	if _, err := stats.ParseCorrectionMode(string(s.Mode)); err != nil {
		return core.NewConfigError("simulation.mode", err.Error())
	}
	if s.Mode == stats.ModeInfluenceTrim && s.Cutoff <= 0 {
		return core.NewConfigError("simulation.cutoff", "must be > 0 for influence-trim")
	}
	if s.Confidence <= 0 || s.Confidence >= 1 {
		return core.NewConfigError("simulation.confidence", "must be in (0,1)")
	}
	return nil
}
