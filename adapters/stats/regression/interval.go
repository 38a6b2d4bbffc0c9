package regression

import (
	"gonum.org/v1/gonum/stat/distuv"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// SlopeInterval returns the two-sided confidence interval for the slope at the
// given level, using Student's t with the fit's residual degrees of freedom.
func SlopeInterval(fit *stats.Fit, level float64) (stats.Interval, error) {
	t, err := criticalValue(fit, level)
	if err != nil {
		return stats.Interval{}, err
	}
	return stats.Interval{
		Lower: fit.Slope - t*fit.SlopeSE,
		Upper: fit.Slope + t*fit.SlopeSE,
	}, nil
}

// InterceptInterval is SlopeInterval for the intercept.
func InterceptInterval(fit *stats.Fit, level float64) (stats.Interval, error) {
	t, err := criticalValue(fit, level)
	if err != nil {
		return stats.Interval{}, err
	}
	return stats.Interval{
		Lower: fit.Intercept - t*fit.InterceptSE,
		Upper: fit.Intercept + t*fit.InterceptSE,
	}, nil
}

func criticalValue(fit *stats.Fit, level float64) (float64, error) {
	if level <= 0 || level >= 1 {
		return 0, core.NewConfigError("confidence", "must be in (0,1)")
	}
	if fit == nil || fit.DF < 1 {
		return 0, core.NewFitError("interval", "no residual degrees of freedom")
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(fit.DF)}
	return dist.Quantile(1 - (1-level)/2), nil
}
