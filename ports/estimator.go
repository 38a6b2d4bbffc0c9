package ports

import (
	"linkbias/domain/stats"
)

// EstimatorPort fits a simple linear regression of y on x.
type EstimatorPort interface {
	Name() string
	Fit(x, y []float64) (*stats.Fit, error)
}

// InfluencePort scores each observation's influence on a fit (e.g. Cook's distance).
type InfluencePort interface {
	Influence(x []float64, fit *stats.Fit) ([]float64, error)
}
