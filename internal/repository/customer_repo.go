package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
)

const customerColumns = `id, external_id, email, first_name, last_name, phone,
	synced_at, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	var externalID sql.NullInt64
	var syncedAt sql.NullTime
	err := row.Scan(
		&c.ID, &externalID, &c.Email, &c.FirstName, &c.LastName, &c.Phone,
		&syncedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalID.Valid {
		c.ExternalID = &externalID.Int64
	}
	if syncedAt.Valid {
		c.SyncedAt = &syncedAt.Time
	}
	return &c, nil
}

func (s *Store) GetCustomerByExternalID(ctx context.Context, externalID int64) (*model.Customer, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE external_id = ?`, externalID)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*model.Customer, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SaveImportedCustomer creates or overwrites the remote-authoritative
// fields of a customer in one transaction.
func (s *Store) SaveImportedCustomer(ctx context.Context, c *model.Customer) error {
	now := time.Now().UTC()
	if c.ID == 0 {
		res, err := s.DB.ExecContext(ctx, `
			INSERT INTO customers (external_id, email, first_name, last_name, phone,
				synced_at, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?)
		`, c.ExternalID, c.Email, c.FirstName, c.LastName, c.Phone, now, now, now)
		if err != nil {
			return err
		}
		c.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	} else {
		if _, err := s.DB.ExecContext(ctx, `
			UPDATE customers SET external_id = ?, email = ?, first_name = ?,
				last_name = ?, phone = ?, synced_at = ?, updated_at = ?
			WHERE id = ?
		`, c.ExternalID, c.Email, c.FirstName, c.LastName, c.Phone, now, now, c.ID); err != nil {
			return err
		}
	}
	c.SyncedAt = &now
	return nil
}
