package simulation

import (
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// Quantile levels reported as Summary.Lower and Summary.Upper.
const (
	LowerQuantile = 0.025
	UpperQuantile = 0.975
)

// Summarize reduces a result set to the sampling distribution of the slope over
// its successful trials. trueSlope, when given, adds bias and interval coverage.
// A result set with no successes is a FitFailure.
func Summarize(rs *ResultSet, trueSlope *float64) (stats.Summary, error) {
	sum := stats.Summary{
		Mode:      rs.Config.Mode,
		Precision: rs.Config.Precision,
		Trials:    len(rs.Trials),
	}
	if rs.Config.Mode == stats.ModeInfluenceTrim {
		sum.Cutoff = rs.Config.Cutoff
	}

	succ := rs.Successes()
	sum.Failed = len(rs.Trials) - len(succ)
	if len(succ) == 0 {
		return sum, fmt.Errorf("%w: all %d trials failed", core.ErrFitFailure, len(rs.Trials))
	}

	slopes := make([]float64, len(succ))
	trimmed := make([]float64, len(succ))
	for i, t := range succ {
		slopes[i] = t.Slope
		trimmed[i] = float64(t.Mismatched - t.MismatchedRetained)
	}

	sum.Mean, _ = mstats.Mean(slopes)
	if len(slopes) > 1 {
		sum.SD, _ = mstats.StandardDeviationSample(slopes)
	}
	sum.Lower, sum.Upper = quantiles(slopes)
	sum.MeanTrimmed, _ = mstats.Mean(trimmed)
	sum.MeanCI = meanInterval(sum.Mean, sum.SD, len(slopes), rs.Config.Confidence)

	if trueSlope != nil {
		bias := sum.Mean - *trueSlope
		sum.Bias = &bias
		if cov, ok := coverage(succ, *trueSlope); ok {
			sum.Coverage = &cov
		}
	}
	return sum, nil
}

// SummarizeAll summarizes each result set in order, stopping at the first error.
func SummarizeAll(sets []*ResultSet, trueSlope *float64) ([]stats.Summary, error) {
	out := make([]stats.Summary, 0, len(sets))
	for _, rs := range sets {
		sum, err := Summarize(rs, trueSlope)
		if err != nil {
			return out, fmt.Errorf("summarize %s: %w", rs.Config.Mode, err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// quantiles returns the 2.5% and 97.5% points by linear interpolation of the
// empirical distribution.
func quantiles(values []float64) (lower, upper float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(LowerQuantile, stat.LinInterp, sorted, nil),
		stat.Quantile(UpperQuantile, stat.LinInterp, sorted, nil)
}

// meanInterval is the t interval for the mean slope across trials.
func meanInterval(mean, sd float64, k int, level float64) *stats.Interval {
	if k < 2 || level <= 0 || level >= 1 {
		return nil
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(k - 1)}.Quantile(1 - (1-level)/2)
	half := t * sd / math.Sqrt(float64(k))
	return &stats.Interval{Lower: mean - half, Upper: mean + half}
}

// coverage is the share of trials whose slope interval contains truth.
func coverage(trials []stats.TrialResult, truth float64) (float64, bool) {
	with, hits := 0, 0
	for _, t := range trials {
		if t.SlopeCI == nil {
			continue
		}
		with++
		if t.SlopeCI.Contains(truth) {
			hits++
		}
	}
	if with == 0 {
		return 0, false
	}
	return float64(hits) / float64(with), true
}
