package simulation

import (
	"fmt"
	"sort"

	"linkbias/adapters/stats/regression"
	"linkbias/domain/core"
	"linkbias/domain/linkage"
	"linkbias/domain/stats"
	"linkbias/ports"
)

// Corrector turns one linked sample into one trial estimate.
type Corrector interface {
	Mode() stats.CorrectionMode
	Correct(sample *linkage.Sample, cfg Config) (stats.TrialResult, error)
}

// Estimators bundles the fitting collaborators the correctors share.
type Estimators struct {
	OLS       ports.EstimatorPort
	Robust    ports.EstimatorPort
	Influence ports.InfluencePort
}

// DefaultEstimators wires the gonum-backed fits.
func DefaultEstimators() Estimators {
	return Estimators{
		OLS:       regression.NewOLS(),
		Robust:    regression.NewHuber(),
		Influence: regression.NewCooksDistance(),
	}
}

// NewCorrector returns the corrector for mode.
func NewCorrector(mode stats.CorrectionMode, est Estimators) (Corrector, error) {
	switch mode {
	case stats.ModeNone:
		return &plainCorrector{ols: est.OLS}, nil
	case stats.ModeRescale:
		return &rescaleCorrector{ols: est.OLS}, nil
	case stats.ModeInfluenceTrim:
		return &trimCorrector{ols: est.OLS, influence: est.Influence}, nil
	case stats.ModeRobustFit:
		return &robustCorrector{robust: est.Robust}, nil
	default:
		return nil, core.NewConfigError("mode", fmt.Sprintf("unknown correction mode %q", mode))
	}
}

// estimate packages a fit as a trial result with a slope interval.
func estimate(fit *stats.Fit, level float64, retained int) (stats.TrialResult, error) {
	ci, err := regression.SlopeInterval(fit, level)
	if err != nil {
		return stats.TrialResult{}, err
	}
	return stats.TrialResult{
		Intercept: fit.Intercept,
		Slope:     fit.Slope,
		SlopeCI:   &ci,
		Retained:  retained,
	}, nil
}

type plainCorrector struct {
	ols ports.EstimatorPort
}

func (c *plainCorrector) Mode() stats.CorrectionMode { return stats.ModeNone }

func (c *plainCorrector) Correct(sample *linkage.Sample, cfg Config) (stats.TrialResult, error) {
	fit, err := c.ols.Fit(sample.Xs(), sample.Ys())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res, err := estimate(fit, cfg.Confidence, sample.Len())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res.MismatchedRetained = sample.MismatchedCount()
	return res, nil
}

// rescaleCorrector divides the OLS slope and its interval by the known
// precision. The intercept is reported as fitted.
type rescaleCorrector struct {
	ols ports.EstimatorPort
}

func (c *rescaleCorrector) Mode() stats.CorrectionMode { return stats.ModeRescale }

func (c *rescaleCorrector) Correct(sample *linkage.Sample, cfg Config) (stats.TrialResult, error) {
	if cfg.Precision <= 0 {
		return stats.TrialResult{}, fmt.Errorf("%w: rescaling needs p > 0, got %v", core.ErrInvalidPrecision, cfg.Precision)
	}
	fit, err := c.ols.Fit(sample.Xs(), sample.Ys())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res, err := estimate(fit, cfg.Confidence, sample.Len())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res.Slope = fit.Slope / cfg.Precision
	scaled := res.SlopeCI.Scale(cfg.Precision)
	res.SlopeCI = &scaled
	res.MismatchedRetained = sample.MismatchedCount()
	return res, nil
}

// trimCorrector keeps the Cutoff rows with the smallest Cook's distance under
// the full-sample OLS fit and refits on them.
type trimCorrector struct {
	ols       ports.EstimatorPort
	influence ports.InfluencePort
}

func (c *trimCorrector) Mode() stats.CorrectionMode { return stats.ModeInfluenceTrim }

func (c *trimCorrector) Correct(sample *linkage.Sample, cfg Config) (stats.TrialResult, error) {
	xs := sample.Xs()
	fit, err := c.ols.Fit(xs, sample.Ys())
	if err != nil {
		return stats.TrialResult{}, err
	}

	n := sample.Len()
	if cfg.Cutoff >= n {
		res, err := estimate(fit, cfg.Confidence, n)
		if err != nil {
			return stats.TrialResult{}, err
		}
		res.MismatchedRetained = sample.MismatchedCount()
		return res, nil
	}
	if cfg.Cutoff < 3 {
		return stats.TrialResult{}, core.NewFitError(c.ols.Name(), fmt.Sprintf("trimming to %d rows leaves too few to fit", cfg.Cutoff))
	}

	distances, err := c.influence.Influence(xs, fit)
	if err != nil {
		return stats.TrialResult{}, err
	}

	kept := keepLeastInfluential(distances, cfg.Cutoff)
	trimmed := sample.Subset(kept)
	refit, err := c.ols.Fit(trimmed.Xs(), trimmed.Ys())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res, err := estimate(refit, cfg.Confidence, trimmed.Len())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res.MismatchedRetained = trimmed.MismatchedCount()
	return res, nil
}

// keepLeastInfluential returns the positions of the k smallest distances, in
// sample order. Ties keep the earlier row.
func keepLeastInfluential(distances []float64, k int) []int {
	order := make([]int, len(distances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})
	kept := order[:k]
	sort.Ints(kept)
	return kept
}

type robustCorrector struct {
	robust ports.EstimatorPort
}

func (c *robustCorrector) Mode() stats.CorrectionMode { return stats.ModeRobustFit }

func (c *robustCorrector) Correct(sample *linkage.Sample, cfg Config) (stats.TrialResult, error) {
	fit, err := c.robust.Fit(sample.Xs(), sample.Ys())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res, err := estimate(fit, cfg.Confidence, sample.Len())
	if err != nil {
		return stats.TrialResult{}, err
	}
	res.MismatchedRetained = sample.MismatchedCount()
	return res, nil
}
