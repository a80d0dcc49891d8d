package ports

import (
	"context"

	"gouq/domain/core"
	"gouq/domain/run"
)

// RunRepository persists sampling runs
type RunRepository interface {
	// Save inserts or replaces a run
	Save(ctx context.Context, r *run.Run) error

	// Get retrieves a run by ID, returning core.ErrRunNotFound when absent
	Get(ctx context.Context, id core.RunID) (*run.Run, error)

	// List returns the most recent runs first, optionally limited
	List(ctx context.Context, limit int) ([]*run.Run, error)

	// UpdateStatus moves a run to a new status
	UpdateStatus(ctx context.Context, id core.RunID, status run.Status) error
}
