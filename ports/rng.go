package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// TrialStream creates an independent stream for one Monte Carlo trial.
	// The same (name, trial, baseSeed) always yields the same sequence, no matter
	// which worker or in which order trials run.
	TrialStream(ctx context.Context, name string, trial int, baseSeed int64) (*rand.Rand, error)
}
