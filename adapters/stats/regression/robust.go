package regression

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"linkbias/domain/core"
	domain "linkbias/domain/stats"
)

const (
	// HuberK is the tuning constant giving 95% efficiency under normal errors.
	HuberK = 1.345
	// madConsistency rescales the median absolute residual to a normal-consistent SD.
	madConsistency = 0.6745
)

// Huber is a Huber M-estimator fitted by iteratively reweighted least squares.
// Starting from OLS, each step rescales residuals by their median absolute value,
// caps the influence of rows beyond K scale units, and refits with the implied weights.
type Huber struct {
	K       float64
	MaxIter int
	Tol     float64
}

// NewHuber creates a Huber estimator with the conventional defaults
func NewHuber() *Huber {
	return &Huber{K: HuberK, MaxIter: 50, Tol: 1e-6}
}

// Name returns the estimator name
func (h *Huber) Name() string {
	return "huber"
}

// Fit regresses y on x, failing with core.ErrFitFailure when IRLS does not
// converge within MaxIter steps.
func (h *Huber) Fit(x, y []float64) (*domain.Fit, error) {
	d, err := newDesign(h.Name(), x, y)
	if err != nil {
		return nil, err
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	resid, _ := residualsOf(x, y, alpha, beta)
	weights := make([]float64, d.n)
	scale := 0.0
	converged := false
	iter := 0

	for iter = 1; iter <= h.MaxIter; iter++ {
		scale = robustScale(resid)
		if scale == 0 {
			// residuals are already (mostly) zero: the current line is exact
			for i := range weights {
				weights[i] = 1
			}
			converged = true
			break
		}

		for i, r := range resid {
			weights[i] = h.weight(r / scale)
		}
		alpha, beta = stat.LinearRegression(x, y, weights, false)
		next, _ := residualsOf(x, y, alpha, beta)

		if relativeChange(resid, next) < h.Tol {
			resid = next
			converged = true
			break
		}
		resid = next
	}
	if !converged {
		return nil, core.NewFitError(h.Name(), "IRLS did not converge")
	}

	scale = robustScale(resid)
	stddev, err := h.sandwichSD(resid, scale)
	if err != nil {
		return nil, err
	}

	fit := &domain.Fit{
		Estimator:   h.Name(),
		Intercept:   alpha,
		Slope:       beta,
		SlopeSE:     stddev / math.Sqrt(d.sxx),
		InterceptSE: stddev * math.Sqrt(1/float64(d.n)+d.xbar*d.xbar/d.sxx),
		Scale:       scale,
		N:           d.n,
		DF:          d.n - 2,
		Residuals:   resid,
		Weights:     weights,
		Iterations:  iter,
	}
	if err := checkFinite(fit); err != nil {
		return nil, err
	}
	return fit, nil
}

func (h *Huber) weight(u float64) float64 {
	a := math.Abs(u)
	if a <= h.K {
		return 1
	}
	return h.K / a
}

// sandwichSD is the Huber (1981) asymptotic standard deviation of the
// estimating equations, including the small-sample kappa correction.
// Multiplying by (X'X)^-1 gives the coefficient covariance.
func (h *Huber) sandwichSD(resid []float64, scale float64) (float64, error) {
	n := float64(len(resid))
	if scale == 0 {
		return 0, nil
	}

	psiSq := 0.0
	deriv := make([]float64, len(resid))
	for i, r := range resid {
		u := r / scale
		psi := math.Max(-h.K, math.Min(h.K, u))
		psiSq += psi * psi
		if math.Abs(u) <= h.K {
			deriv[i] = 1
		}
	}

	mn, _ := stats.Mean(deriv)
	if mn == 0 {
		return 0, core.NewFitError(h.Name(), "every residual lies beyond the Huber threshold")
	}
	varDeriv, _ := stats.PopulationVariance(deriv)
	kappa := 1 + 2*varDeriv/(n*mn*mn)
	s := psiSq / (n - 2)

	return math.Sqrt(s) * kappa / mn * scale, nil
}

func robustScale(resid []float64) float64 {
	abs := make([]float64, len(resid))
	for i, r := range resid {
		abs[i] = math.Abs(r)
	}
	med, err := stats.Median(abs)
	if err != nil {
		return 0
	}
	return med / madConsistency
}

func relativeChange(old, next []float64) float64 {
	num, den := 0.0, 0.0
	for i := range old {
		diff := old[i] - next[i]
		num += diff * diff
		den += old[i] * old[i]
	}
	return math.Sqrt(num / math.Max(1e-20, den))
}
