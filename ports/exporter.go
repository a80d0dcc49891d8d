package ports

import (
	"context"

	"gouq/domain/run"
	"gouq/internal/samples"
)

// SampleExporter writes a run's chain and summary to durable storage
type SampleExporter interface {
	// Export writes the samples and returns the path of the artifact
	Export(ctx context.Context, r *run.Run, s *samples.Samples) (string, error)
}
