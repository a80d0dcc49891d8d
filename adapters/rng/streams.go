// Package rng implements ports.RNGPort on PCG streams.
package rng

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gouq/ports"
)

// Streams derives independent PCG generators from a base seed and a name
type Streams struct{}

var _ ports.RNGPort = (*Streams)(nil)

// NewStreams creates the RNG adapter
func NewStreams() *Streams {
	return &Streams{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (s *Streams) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(seed, uint64(hashString(name)))), nil
}

// Stream creates a deterministic RNG stream for one phase of a run
func (s *Streams) Stream(ctx context.Context, runID, phase string, baseSeed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stream := uint64(hashString(phase))
	if runID != "" {
		stream = stream<<32 | uint64(hashString(runID))
	}
	return rand.New(rand.NewPCG(baseSeed, stream)), nil
}

// ValidateSeed draws len(expected) uniforms from the named stream and compares them
func (s *Streams) ValidateSeed(ctx context.Context, name string, seed uint64, expected []float64) error {
	rng, err := s.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		if got := rng.Float64(); math.Abs(got-want) > 1e-15 {
			return fmt.Errorf("stream %q seed %d diverged at draw %d: got %v, want %v", name, seed, i, got, want)
		}
	}
	return nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
