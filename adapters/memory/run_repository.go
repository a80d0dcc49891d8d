// Package memory provides process-local adapters used when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gouq/domain/core"
	"gouq/domain/run"
	"gouq/ports"
)

// RunRepository keeps runs in a map guarded by a mutex
type RunRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*run.Run
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates an empty repository
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[core.RunID]*run.Run)}
}

// Save stores a copy of r
func (m *RunRepository) Save(ctx context.Context, r *run.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *r
	m.mu.Lock()
	m.runs[r.ID] = &cp
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored run
func (m *RunRepository) Get(ctx context.Context, id core.RunID) (*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	cp := *r
	return &cp, nil
}

// List returns the most recent runs first
func (m *RunRepository) List(ctx context.Context, limit int) ([]*run.Run, error) {
	m.mu.RLock()
	out := make([]*run.Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt.Time(), out[j].CreatedAt.Time()
		if ti.Equal(tj) {
			return out[i].ID > out[j].ID
		}
		return ti.After(tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus moves a run to a new status
func (m *RunRepository) UpdateStatus(ctx context.Context, id core.RunID, status run.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	r.Status = status
	if status == run.StatusCompleted || status == run.StatusFailed {
		now := core.Now()
		r.CompletedAt = &now
	}
	return nil
}
