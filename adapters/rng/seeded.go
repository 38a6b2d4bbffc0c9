package rng

import (
	"context"
	"fmt"
	"math/rand"
)

// SeededAdapter implements ports.RNGPort with math/rand sources derived from
// stable hashes of stream names. It holds no state and is safe to share.
type SeededAdapter struct{}

// NewSeededAdapter creates the RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(DeriveSeed(seed, name, 0))), nil
}

// TrialStream creates an independent stream for one trial
func (a *SeededAdapter) TrialStream(ctx context.Context, name string, trial int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trial < 0 {
		return nil, fmt.Errorf("trial index must be >= 0, got %d", trial)
	}
	return rand.New(rand.NewSource(DeriveSeed(baseSeed, name, uint64(trial)+1))), nil
}

// DeriveSeed mixes a base seed, a stream name and a stream index into a new seed.
// Neighbouring trial indices land far apart thanks to the splitmix64 finalizer.
func DeriveSeed(baseSeed int64, name string, index uint64) int64 {
	h := uint64(baseSeed)
	h ^= uint64(hashString(name)) << 32
	h += index * 0x9E3779B97F4A7C15
	return int64(splitmix64(h))
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
