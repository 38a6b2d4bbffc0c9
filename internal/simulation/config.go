package simulation

import (
	"fmt"
	"runtime"

	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/sampler"
)

// TrialStreamName names the per-trial RNG streams. Changing it changes every result.
const TrialStreamName = "linkage-trial"

// Config drives one harness run. Workers and FailFast only affect execution;
// every other field is part of the result's identity.
type Config struct {
	Trials     int
	SampleSize int
	Precision  float64
	Mode       stats.CorrectionMode
	Cutoff     int
	Center     bool
	Confidence float64
	Workers    int
	Seed       int64
	FailFast   bool
}

// ConfigFromParams lifts persisted simulation parameters into a harness config.
func ConfigFromParams(p run.SimulationParams, workers int) Config {
	return Config{
		Trials:     p.Trials,
		SampleSize: p.SampleSize,
		Precision:  p.Precision,
		Mode:       p.Mode,
		Cutoff:     p.Cutoff,
		Center:     p.Center,
		Confidence: p.Confidence,
		Workers:    workers,
		Seed:       p.Seed,
	}
}

// Params returns the determinism-relevant part of the config.
func (c Config) Params() run.SimulationParams {
	return run.SimulationParams{
		Trials:     c.Trials,
		SampleSize: c.SampleSize,
		Precision:  c.Precision,
		Mode:       c.Mode,
		Cutoff:     c.Cutoff,
		Center:     c.Center,
		Confidence: c.Confidence,
		Seed:       c.Seed,
	}
}

// SamplerOptions returns the per-trial draw options.
func (c Config) SamplerOptions() sampler.Options {
	return sampler.Options{Size: c.SampleSize, Precision: c.Precision, Center: c.Center}
}

func (c Config) withDefaults() Config {
	if m, err := stats.ParseCorrectionMode(string(c.Mode)); err == nil {
		c.Mode = m
	}
	if c.Confidence == 0 {
		c.Confidence = stats.DefaultConfidence
	}
	if c.Mode == stats.ModeInfluenceTrim && c.Cutoff == 0 {
		c.Cutoff = stats.DefaultTrimCutoff
	}
	if c.Workers < 1 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// validate rejects configs that cannot produce any trial at all. Sampler and
// fit conditions (precision, population size, cutoff too small) are left to
// the trials, which report them individually.
func (c Config) validate() error {
	if c.Trials <= 0 {
		return core.NewConfigError("trials", fmt.Sprintf("%d must be > 0", c.Trials))
	}
	if _, err := stats.ParseCorrectionMode(string(c.Mode)); err != nil {
		return core.NewConfigError("mode", err.Error())
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return core.NewConfigError("confidence", "must be in (0,1)")
	}
	if c.Cutoff < 0 {
		return core.NewConfigError("cutoff", "must be >= 0")
	}
	return nil
}

// ResultSet holds every trial of a run in trial order. len(Trials) == Config.Trials,
// failed trials included.
type ResultSet struct {
	Config Config
	Trials []stats.TrialResult
}

// Successes returns the trials that produced an estimate.
func (r *ResultSet) Successes() []stats.TrialResult {
	out := make([]stats.TrialResult, 0, len(r.Trials))
	for _, t := range r.Trials {
		if !t.Failed() {
			out = append(out, t)
		}
	}
	return out
}

// Slopes returns the slope of every successful trial.
func (r *ResultSet) Slopes() []float64 {
	succ := r.Successes()
	out := make([]float64, len(succ))
	for i, t := range succ {
		out[i] = t.Slope
	}
	return out
}

// FailedCount returns how many trials carry an error.
func (r *ResultSet) FailedCount() int {
	return len(r.Trials) - len(r.Successes())
}

// FirstError returns the error of the lowest-numbered failed trial, or nil.
func (r *ResultSet) FirstError() error {
	for _, t := range r.Trials {
		if t.Err != nil {
			return t.Err
		}
	}
	return nil
}
