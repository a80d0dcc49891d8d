package ports

import (
	"gouq/domain/core"
	"gouq/domain/run"
)

// RunEvents receives lifecycle notifications for sampling runs
type RunEvents interface {
	// RunProgress reports that done of total sampler iterations have finished
	RunProgress(id core.RunID, done, total int)

	// RunFinished reports a run that has completed or failed
	RunFinished(r *run.Run)
}
