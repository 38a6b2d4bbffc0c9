package stats

import (
	"fmt"
	"strings"
)

// ============================================================================
// FITS
// ============================================================================

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies in [Lower, Upper].
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// Width returns Upper - Lower.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Scale divides both bounds by d, swapping them if d is negative.
func (i Interval) Scale(d float64) Interval {
	lo, hi := i.Lower/d, i.Upper/d
	if lo > hi {
		lo, hi = hi, lo
	}
	return Interval{Lower: lo, Upper: hi}
}

// Fit is the result of regressing response on a single predictor.
// INVARIANTS:
// - len(Residuals) == N
// - DF == N - 2
type Fit struct {
	Estimator   string    `json:"estimator"`
	Intercept   float64   `json:"intercept"`
	Slope       float64   `json:"slope"`
	InterceptSE float64   `json:"intercept_se"`
	SlopeSE     float64   `json:"slope_se"`
	Scale       float64   `json:"scale"` // residual standard error (OLS) or robust scale
	N           int       `json:"n"`
	DF          int       `json:"df"`
	Residuals   []float64 `json:"-"`
	Weights     []float64 `json:"-"` // final IRLS weights; nil for OLS
	Iterations  int       `json:"iterations,omitempty"`
}

// ============================================================================
// CORRECTION MODES
// ============================================================================

// CorrectionMode selects how a trial's estimate is produced.
type CorrectionMode string

const (
	ModeNone          CorrectionMode = "none"
	ModeRescale       CorrectionMode = "known-precision-rescale"
	ModeInfluenceTrim CorrectionMode = "influence-trim"
	ModeRobustFit     CorrectionMode = "robust-fit"
)

const (
	// DefaultTrimCutoff is the number of rows influence-trim keeps when no cutoff is given.
	DefaultTrimCutoff = 980
	DefaultConfidence = 0.95
)

// AllModes lists every correction mode in display order.
func AllModes() []CorrectionMode {
	return []CorrectionMode{ModeNone, ModeRescale, ModeInfluenceTrim, ModeRobustFit}
}

// ParseCorrectionMode accepts the canonical names plus a few short aliases.
func ParseCorrectionMode(s string) (CorrectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "ols":
		return ModeNone, nil
	case "known-precision-rescale", "rescale":
		return ModeRescale, nil
	case "influence-trim", "trim", "cooks":
		return ModeInfluenceTrim, nil
	case "robust-fit", "robust", "huber":
		return ModeRobustFit, nil
	default:
		return "", fmt.Errorf("unknown correction mode %q", s)
	}
}

// ============================================================================
// TRIALS AND SUMMARIES
// ============================================================================

// TrialResult is one Monte Carlo trial. A failed trial keeps its slot with Err set.
type TrialResult struct {
	Trial              int            `json:"trial"`
	Mode               CorrectionMode `json:"mode"`
	Intercept          float64        `json:"intercept"`
	Slope              float64        `json:"slope"`
	SlopeCI            *Interval      `json:"slope_ci,omitempty"`
	SampleSize         int            `json:"sample_size"`
	Retained           int            `json:"retained"`
	Mismatched         int            `json:"mismatched"`
	MismatchedRetained int            `json:"mismatched_retained"`
	Err                error          `json:"-"`
	Error              string         `json:"error,omitempty"`
}

// Failed reports whether the trial produced no estimate.
func (t TrialResult) Failed() bool {
	return t.Err != nil || t.Error != ""
}

// Summary is the sampling distribution of the slope estimator under one mode.
type Summary struct {
	Mode        CorrectionMode `json:"mode"`
	Cutoff      int            `json:"cutoff,omitempty"`
	Precision   float64        `json:"precision"`
	Trials      int            `json:"trials"`
	Failed      int            `json:"failed"`
	Mean        float64        `json:"mean"`
	SD          float64        `json:"sd"`
	Lower       float64        `json:"q025"`
	Upper       float64        `json:"q975"`
	MeanCI      *Interval      `json:"mean_ci,omitempty"`
	Coverage    *float64       `json:"coverage,omitempty"`
	Bias        *float64       `json:"bias,omitempty"`
	MeanTrimmed float64        `json:"mean_mismatch_trimmed,omitempty"`
}
