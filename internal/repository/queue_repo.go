package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
)

const actionColumns = `id, entity_type, operation, payload, status, attempts,
	last_error, created_at, last_attempt_at`

func scanAction(row interface{ Scan(...any) error }) (*model.PendingAction, error) {
	var a model.PendingAction
	var payload string
	var lastAttempt sql.NullTime
	err := row.Scan(&a.ID, &a.EntityType, &a.Operation, &payload, &a.Status,
		&a.Attempts, &a.LastError, &a.CreatedAt, &lastAttempt)
	if err != nil {
		return nil, err
	}
	a.Payload = []byte(payload)
	if lastAttempt.Valid {
		a.LastAttemptAt = &lastAttempt.Time
	}
	return &a, nil
}

// EnqueueAction appends to the sync queue. The caller must not swallow
// a returned error: an entry that fails to persist is a completed sale
// that would never reach the remote store.
func (s *Store) EnqueueAction(ctx context.Context, a *model.PendingAction) error {
	if a.Status == "" {
		a.Status = model.ActionPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sync_queue (id, entity_type, operation, payload, status, attempts, last_error, created_at)
		VALUES (?,?,?,?,?,?,?,?)
	`, a.ID, a.EntityType, a.Operation, string(a.Payload), a.Status, a.Attempts, a.LastError, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue action: %w", err)
	}
	return nil
}

// PendingActions returns pending entries in insertion (FIFO) order.
func (s *Store) PendingActions(ctx context.Context, entityType string, limit int) ([]model.PendingAction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM sync_queue
		WHERE status = ? AND entity_type = ?
		ORDER BY rowid LIMIT ?
	`, model.ActionPending, entityType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PendingAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) GetAction(ctx context.Context, id string) (*model.PendingAction, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM sync_queue WHERE id = ?`, id)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// MarkActionInflight claims a pending entry for processing.
func (s *Store) MarkActionInflight(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_attempt_at = ?
		WHERE id = ? AND status = ?
	`, model.ActionInflight, time.Now().UTC(), id, model.ActionPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("action %s is not pending", id)
	}
	return nil
}

// RequeueInflightActions returns entries stranded inflight by an
// interrupted drain (crash, kill) to pending. The interrupted attempt
// is not charged: the export may or may not have reached the remote
// store, and the retry resolves that by client reference.
func (s *Store) RequeueInflightActions(ctx context.Context) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE sync_queue SET status = ? WHERE status = ?
	`, model.ActionPending, model.ActionInflight)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CompleteAction removes a successfully exported entry.
func (s *Store) CompleteAction(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

// ReleaseAction puts an inflight entry back to pending. attempts is the
// new absolute count; connectivity-caused aborts release with the count
// unchanged.
func (s *Store) ReleaseAction(ctx context.Context, id string, attempts int, lastError string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, attempts = ?, last_error = ? WHERE id = ?
	`, model.ActionPending, attempts, lastError, id)
	return err
}

// FailAction parks an entry in the terminal failed state. It stays
// visible until an operator retries or dismisses it.
func (s *Store) FailAction(ctx context.Context, id string, attempts int, lastError string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, attempts = ?, last_error = ? WHERE id = ?
	`, model.ActionFailed, attempts, lastError, id)
	return err
}

// RetryFailedAction is the operator's explicit requeue of a failed
// entry; the attempt budget starts over.
func (s *Store) RetryFailedAction(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, attempts = 0, last_error = ''
		WHERE id = ? AND status = ?
	`, model.ActionPending, id, model.ActionFailed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("action %s is not in failed state", id)
	}
	return nil
}

func (s *Store) DeleteAction(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("action %s not found", id)
	}
	return nil
}

// CountActions is index-backed; the UI and the monitor poll it.
func (s *Store) CountActions(ctx context.Context, status string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status = ?`, status).Scan(&n)
	return n, err
}

func (s *Store) ListActions(ctx context.Context, status string, limit int) ([]model.PendingAction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + actionColumns + ` FROM sync_queue`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY rowid LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PendingAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
