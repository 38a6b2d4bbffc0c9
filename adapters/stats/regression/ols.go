package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// minObservations is the smallest sample with a positive residual degree of freedom.
const minObservations = 3

// OLS fits y = a + b*x by ordinary least squares.
type OLS struct{}

// NewOLS creates an ordinary least squares estimator
func NewOLS() *OLS {
	return &OLS{}
}

// Name returns the estimator name
func (e *OLS) Name() string {
	return "ols"
}

// Fit regresses y on x. Rank-deficient designs (fewer than three rows or a
// constant predictor) fail with core.ErrFitFailure.
func (e *OLS) Fit(x, y []float64) (*stats.Fit, error) {
	d, err := newDesign(e.Name(), x, y)
	if err != nil {
		return nil, err
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	residuals, rss := residualsOf(x, y, alpha, beta)

	df := d.n - 2
	sigma2 := rss / float64(df)
	fit := &stats.Fit{
		Estimator:   e.Name(),
		Intercept:   alpha,
		Slope:       beta,
		SlopeSE:     math.Sqrt(sigma2 / d.sxx),
		InterceptSE: math.Sqrt(sigma2 * (1/float64(d.n) + d.xbar*d.xbar/d.sxx)),
		Scale:       math.Sqrt(sigma2),
		N:           d.n,
		DF:          df,
		Residuals:   residuals,
	}
	if err := checkFinite(fit); err != nil {
		return nil, err
	}
	return fit, nil
}

// design holds the predictor moments shared by every estimator.
type design struct {
	n    int
	xbar float64
	sxx  float64
}

func newDesign(estimator string, x, y []float64) (design, error) {
	if len(x) != len(y) {
		return design{}, core.NewFitError(estimator, fmt.Sprintf("length mismatch: %d predictors, %d responses", len(x), len(y)))
	}
	if len(x) < minObservations {
		return design{}, core.NewFitError(estimator, fmt.Sprintf("need at least %d observations, got %d", minObservations, len(x)))
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return design{}, core.NewFitError(estimator, fmt.Sprintf("non-finite value at row %d", i))
		}
	}

	xbar := stat.Mean(x, nil)
	sxx := 0.0
	for _, v := range x {
		sxx += (v - xbar) * (v - xbar)
	}
	if sxx == 0 {
		return design{}, core.NewFitError(estimator, "predictor has zero variance")
	}
	return design{n: len(x), xbar: xbar, sxx: sxx}, nil
}

func residualsOf(x, y []float64, alpha, beta float64) ([]float64, float64) {
	residuals := make([]float64, len(x))
	rss := 0.0
	for i := range x {
		r := y[i] - (alpha + beta*x[i])
		residuals[i] = r
		rss += r * r
	}
	return residuals, rss
}

func checkFinite(fit *stats.Fit) error {
	for _, v := range []float64{fit.Intercept, fit.Slope, fit.SlopeSE, fit.InterceptSE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewFitError(fit.Estimator, "non-finite estimate")
		}
	}
	return nil
}
