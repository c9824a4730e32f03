package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
)

func (s *Store) RecordStockMovement(ctx context.Context, mv *model.StockMovement) error {
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO stock_movements (owner_key, delta, reason, reference, created_at)
		VALUES (?,?,?,?,?)
	`, mv.OwnerKey, mv.Delta, mv.Reason, mv.Reference, mv.CreatedAt)
	if err != nil {
		return err
	}
	mv.ID, err = res.LastInsertId()
	return err
}

func (s *Store) ListStockMovements(ctx context.Context, ownerKey string, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_key, delta, reason, reference, created_at
		FROM stock_movements WHERE owner_key = ? ORDER BY id DESC LIMIT ?
	`, ownerKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StockMovement
	for rows.Next() {
		var mv model.StockMovement
		if err := rows.Scan(&mv.ID, &mv.OwnerKey, &mv.Delta, &mv.Reason, &mv.Reference, &mv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?,?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
