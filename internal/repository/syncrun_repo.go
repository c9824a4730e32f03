package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
)

// BeginSyncRun opens the audit row for one entity/direction cycle.
func (s *Store) BeginSyncRun(ctx context.Context, entityType, direction string) (*model.SyncRun, error) {
	run := &model.SyncRun{
		EntityType: entityType,
		Direction:  direction,
		StartedAt:  time.Now().UTC(),
		Status:     model.RunRunning,
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO sync_runs (entity_type, direction, started_at, status)
		VALUES (?,?,?,?)
	`, run.EntityType, run.Direction, run.StartedAt, run.Status)
	if err != nil {
		return nil, err
	}
	run.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishSyncRun finalizes the audit row. Finished rows are never
// touched again; the table is an append-only trail.
func (s *Store) FinishSyncRun(ctx context.Context, run *model.SyncRun) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.DurationMs = now.Sub(run.StartedAt).Milliseconds()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sync_runs SET completed_at = ?, processed = ?, failed = ?,
			status = ?, error_summary = ?, duration_ms = ?
		WHERE id = ?
	`, run.CompletedAt, run.Processed, run.Failed, run.Status, run.ErrorSummary, run.DurationMs, run.ID)
	return err
}

const syncRunColumns = `id, entity_type, direction, started_at, completed_at,
	processed, failed, status, error_summary, duration_ms`

func scanSyncRun(row interface{ Scan(...any) error }) (*model.SyncRun, error) {
	var run model.SyncRun
	var completedAt sql.NullTime
	err := row.Scan(&run.ID, &run.EntityType, &run.Direction, &run.StartedAt, &completedAt,
		&run.Processed, &run.Failed, &run.Status, &run.ErrorSummary, &run.DurationMs)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// LastCompletedSyncRun returns the newest finished run for one
// entity/direction, nil when none exists yet.
func (s *Store) LastCompletedSyncRun(ctx context.Context, entityType, direction string) (*model.SyncRun, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+syncRunColumns+` FROM sync_runs
		WHERE entity_type = ? AND direction = ? AND completed_at IS NOT NULL
		ORDER BY id DESC LIMIT 1
	`, entityType, direction)
	run, err := scanSyncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// LastSyncTime is the completion time of the newest finished run of any
// kind, for the status display.
func (s *Store) LastSyncTime(ctx context.Context) (*time.Time, error) {
	var completedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
		SELECT completed_at FROM sync_runs
		WHERE completed_at IS NOT NULL ORDER BY id DESC LIMIT 1
	`).Scan(&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completedAt.Time, nil
}
