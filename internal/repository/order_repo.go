package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
)

const orderColumns = `id, reference, external_id, customer_id, status, payment_method,
	total, synced_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var externalID, customerID sql.NullInt64
	var syncedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.Reference, &externalID, &customerID, &o.Status, &o.PaymentMethod,
		&o.Total, &syncedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalID.Valid {
		o.ExternalID = &externalID.Int64
	}
	if customerID.Valid {
		o.CustomerID = &customerID.Int64
	}
	if syncedAt.Valid {
		o.SyncedAt = &syncedAt.Time
	}
	return &o, nil
}

// CreateOrder persists an order with its items in one transaction and
// fills in the generated ids.
func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (reference, customer_id, status, payment_method, total, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
	`, o.Reference, o.CustomerID, o.Status, o.PaymentMethod, o.Total, now, now)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, variant_id, name, quantity, price)
			VALUES (?,?,?,?,?,?)
		`, item.OrderID, item.ProductID, item.VariantID, item.Name, item.Quantity, item.Price)
		if err != nil {
			return err
		}
		item.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	return tx.Commit()
}

func (s *Store) loadOrderItems(ctx context.Context, o *model.Order) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, name, quantity, price
		FROM order_items WHERE order_id = ? ORDER BY id
	`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		var productID, variantID sql.NullInt64
		if err := rows.Scan(&item.ID, &item.OrderID, &productID, &variantID,
			&item.Name, &item.Quantity, &item.Price); err != nil {
			return err
		}
		if productID.Valid {
			item.ProductID = &productID.Int64
		}
		if variantID.Valid {
			item.VariantID = &variantID.Int64
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) GetOrderByReference(ctx context.Context, reference string) (*model.Order, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE reference = ?`, reference)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// SetOrderExternalID records the remote id assigned to an exported
// order. The id is set once: a second call with a different id is
// rejected, never silently reassigned.
func (s *Store) SetOrderExternalID(ctx context.Context, orderID, externalID int64) error {
	now := time.Now().UTC()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE orders SET external_id = ?, synced_at = ?, updated_at = ?
		WHERE id = ? AND (external_id IS NULL OR external_id = ?)
	`, externalID, now, now, orderID, externalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d already has a different external id", orderID)
	}
	return nil
}

func (s *Store) TouchOrderSyncedAt(ctx context.Context, orderID int64) error {
	now := time.Now().UTC()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE orders SET synced_at = ?, updated_at = ? WHERE id = ?`, now, now, orderID)
	return err
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), orderID)
	return err
}

// ListSyncedOrders returns orders that exist remotely, for pulling back
// remote status changes (refunds, cancellations).
func (s *Store) ListSyncedOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE external_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
