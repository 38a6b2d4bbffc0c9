package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"linkbias/domain/core"
	"linkbias/domain/stats"
)

// CooksDistance measures how far the fitted coefficients move when a row is
// dropped: D_i = r_i^2 / (p*s^2) * h_ii / (1-h_ii)^2, with h_ii the leverage
// from the hat matrix X(X'X)^-1X'.
type CooksDistance struct{}

// NewCooksDistance creates the influence measure
func NewCooksDistance() *CooksDistance {
	return &CooksDistance{}
}

// Influence returns one Cook's distance per row of the fit. fit must be an OLS
// fit of the same x.
func (c *CooksDistance) Influence(x []float64, fit *stats.Fit) ([]float64, error) {
	n := len(x)
	if fit == nil || len(fit.Residuals) != n {
		return nil, core.NewFitError("cooks", "fit does not match design")
	}

	leverage, err := Leverage(x)
	if err != nil {
		return nil, err
	}

	const p = 2.0
	s2 := fit.Scale * fit.Scale
	out := make([]float64, n)
	if s2 == 0 {
		return out, nil
	}
	for i, h := range leverage {
		if h >= 1 {
			out[i] = math.Inf(1)
			continue
		}
		r := fit.Residuals[i]
		out[i] = (r * r / (p * s2)) * h / ((1 - h) * (1 - h))
	}
	return out, nil
}

// Leverage returns the diagonal of the hat matrix for the design [1 x].
func Leverage(x []float64) ([]float64, error) {
	n := len(x)
	if n < minObservations {
		return nil, core.NewFitError("leverage", fmt.Sprintf("need at least %d observations, got %d", minObservations, n))
	}

	data := make([]float64, 0, 2*n)
	for _, v := range x {
		data = append(data, 1, v)
	}
	design := mat.NewDense(n, 2, data)

	var xtx mat.Dense
	xtx.Mul(design.T(), design)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, core.NewFitError("leverage", "design matrix is singular")
	}

	a, b, d := inv.At(0, 0), inv.At(0, 1), inv.At(1, 1)
	out := make([]float64, n)
	for i, v := range x {
		out[i] = a + 2*b*v + d*v*v
	}
	return out, nil
}
