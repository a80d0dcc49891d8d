package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draws(t *testing.T, s *Streams, name string, seed uint64, n int) []float64 {
	t.Helper()
	r, err := s.SeededStream(context.Background(), name, seed)
	require.NoError(t, err)
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out
}

func TestSeededStream_Deterministic(t *testing.T) {
	s := NewStreams()
	a := draws(t, s, "data", 7, 5)
	assert.Equal(t, a, draws(t, s, "data", 7, 5))
	assert.NotEqual(t, a, draws(t, s, "sampler", 7, 5))
	assert.NotEqual(t, a, draws(t, s, "data", 8, 5))

	assert.NoError(t, s.ValidateSeed(context.Background(), "data", 7, a))
	a[3] += 0.25
	assert.Error(t, s.ValidateSeed(context.Background(), "data", 7, a))
}

func TestStream_SeparatesPhasesAndRuns(t *testing.T) {
	ctx := context.Background()
	s := NewStreams()
	first := func(runID, phase string) float64 {
		r, err := s.Stream(ctx, runID, phase, 42)
		require.NoError(t, err)
		return r.Float64()
	}
	assert.Equal(t, first("", "data"), first("", "data"))
	assert.NotEqual(t, first("", "data"), first("", "sampler"))
	assert.NotEqual(t, first("run-a", "data"), first("run-b", "data"))
}

func TestStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStreams().Stream(ctx, "", "data", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
