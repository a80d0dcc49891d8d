package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic runs
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one phase of a run.
	// Data synthesis and posterior sampling draw from separate streams so
	// changing the sample count never changes the synthetic data.
	Stream(ctx context.Context, runID, phase string, baseSeed uint64) (*rand.Rand, error)

	// ValidateSeed ensures the seed produces expected deterministic results
	ValidateSeed(ctx context.Context, name string, seed uint64, expected []float64) error
}
