// Package regression provides the single-predictor estimators used by the
// simulation harness: ordinary least squares, a Huber M-estimator, Cook's
// distance and t-based confidence intervals. Estimates are built on gonum and
// every degenerate input is reported as core.ErrFitFailure.
package regression
