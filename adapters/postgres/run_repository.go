package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gouq/domain/core"
	"gouq/domain/run"
	"gouq/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// runRow mirrors the sampling_runs table
type runRow struct {
	ID             string        `db:"id"`
	Request        string        `db:"request"`
	Fingerprint    string        `db:"fingerprint"`
	Seed           int64         `db:"seed"`
	CodeVersion    string        `db:"code_version"`
	Status         string        `db:"status"`
	Strategy       string        `db:"strategy"`
	Summary        run.Summaries `db:"summary"`
	MAP            run.Floats    `db:"map_estimate"`
	AcceptanceRate run.Floats    `db:"acceptance_rate"`
	RelativeError  float64       `db:"relative_error"`
	ElapsedMS      int64         `db:"elapsed_ms"`
	Error          string        `db:"error_message"`
	ExportPath     string        `db:"export_path"`
	CreatedAt      time.Time     `db:"created_at"`
	CompletedAt    sql.NullTime  `db:"completed_at"`
}

const selectRuns = `
	SELECT id, request, fingerprint, seed, code_version, status, strategy, summary, map_estimate,
	       acceptance_rate, relative_error, elapsed_ms, error_message, export_path, created_at, completed_at
	FROM sampling_runs`

func toRow(r *run.Run) (*runRow, error) {
	req, err := json.Marshal(r.Request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	row := &runRow{
		ID:             r.ID.String(),
		Request:        string(req),
		Fingerprint:    r.Fingerprint.Fingerprint.String(),
		Seed:           int64(r.Fingerprint.Seed),
		CodeVersion:    r.Fingerprint.CodeVersion,
		Status:         string(r.Status),
		Strategy:       r.Strategy,
		Summary:        r.Summary,
		MAP:            r.MAP,
		AcceptanceRate: r.AcceptanceRate,
		RelativeError:  r.RelativeError,
		ElapsedMS:      r.ElapsedMS,
		Error:          r.Error,
		ExportPath:     r.ExportPath,
		CreatedAt:      r.CreatedAt.Time(),
	}
	if r.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: r.CompletedAt.Time(), Valid: true}
	}
	return row, nil
}

func (row *runRow) toRun() (*run.Run, error) {
	r := &run.Run{
		ID: core.RunID(row.ID),
		Fingerprint: run.RunFingerprint{
			Seed:        uint64(row.Seed),
			CodeVersion: row.CodeVersion,
			Fingerprint: core.Hash(row.Fingerprint),
		},
		Status:         run.Status(row.Status),
		Strategy:       row.Strategy,
		Summary:        row.Summary,
		MAP:            row.MAP,
		AcceptanceRate: row.AcceptanceRate,
		RelativeError:  row.RelativeError,
		ElapsedMS:      row.ElapsedMS,
		Error:          row.Error,
		ExportPath:     row.ExportPath,
		CreatedAt:      core.NewTimestamp(row.CreatedAt),
	}
	if err := json.Unmarshal([]byte(row.Request), &r.Request); err != nil {
		return nil, fmt.Errorf("decode request of run %s: %w", row.ID, err)
	}
	if row.CompletedAt.Valid {
		ts := core.NewTimestamp(row.CompletedAt.Time)
		r.CompletedAt = &ts
	}
	return r, nil
}

// Save inserts or replaces a run
func (repo *RunRepositoryImpl) Save(ctx context.Context, r *run.Run) error {
	row, err := toRow(r)
	if err != nil {
		return err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO sampling_runs (id, request, fingerprint, seed, code_version, status, strategy, summary,
			map_estimate, acceptance_rate, relative_error, elapsed_ms, error_message, export_path, created_at, completed_at)
		VALUES (:id, :request, :fingerprint, :seed, :code_version, :status, :strategy, :summary,
			:map_estimate, :acceptance_rate, :relative_error, :elapsed_ms, :error_message, :export_path, :created_at, :completed_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			strategy = EXCLUDED.strategy,
			summary = EXCLUDED.summary,
			map_estimate = EXCLUDED.map_estimate,
			acceptance_rate = EXCLUDED.acceptance_rate,
			relative_error = EXCLUDED.relative_error,
			elapsed_ms = EXCLUDED.elapsed_ms,
			error_message = EXCLUDED.error_message,
			export_path = EXCLUDED.export_path,
			completed_at = EXCLUDED.completed_at
	`, row)
	return err
}

// Get retrieves a run by ID
func (repo *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*run.Run, error) {
	var row runRow
	err := repo.db.GetContext(ctx, &row, selectRuns+` WHERE id = $1`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return row.toRun()
}

// List returns the most recent runs first, optionally limited
func (repo *RunRepositoryImpl) List(ctx context.Context, limit int) ([]*run.Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []runRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	runs := make([]*run.Run, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// UpdateStatus moves a run to a new status
func (repo *RunRepositoryImpl) UpdateStatus(ctx context.Context, id core.RunID, status run.Status) error {
	var completedAt interface{}
	if status == run.StatusCompleted || status == run.StatusFailed {
		completedAt = time.Now().UTC()
	}

	res, err := repo.db.ExecContext(ctx, `
		UPDATE sampling_runs
		SET status = $2, completed_at = $3
		WHERE id = $1
	`, id.String(), string(status), completedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return nil
}
