package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
)

const productColumns = `id, external_id, sku, name, description, price, regular_price,
	status, manage_stock, stock_quantity, synced_at, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var externalID sql.NullInt64
	var syncedAt sql.NullTime
	err := row.Scan(
		&p.ID, &externalID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.RegularPrice,
		&p.Status, &p.ManageStock, &p.StockQuantity, &syncedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalID.Valid {
		p.ExternalID = &externalID.Int64
	}
	if syncedAt.Valid {
		p.SyncedAt = &syncedAt.Time
	}
	return &p, nil
}

// GetProductByExternalID returns (nil, nil) when no local counterpart
// exists yet.
func (s *Store) GetProductByExternalID(ctx context.Context, externalID int64) (*model.Product, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE external_id = ?`, externalID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = ? LIMIT 1`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListSyncedProducts returns products that already have a remote
// counterpart, the working set for inventory reconciliation.
func (s *Store) ListSyncedProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE external_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SaveImportedProduct persists one imported product and, when the
// import changed a locally observed quantity, the stock movement that
// explains the change. Both land in one transaction so a crash
// mid-import cannot leave a half-written record.
func (s *Store) SaveImportedProduct(ctx context.Context, p *model.Product, mv *model.StockMovement) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if p.ID == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO products (external_id, sku, name, description, price, regular_price,
				status, manage_stock, stock_quantity, synced_at, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		`, p.ExternalID, p.SKU, p.Name, p.Description, p.Price, p.RegularPrice,
			p.Status, p.ManageStock, p.StockQuantity, now, now, now)
		if err != nil {
			return err
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE products SET external_id = ?, sku = ?, name = ?, description = ?,
				price = ?, regular_price = ?, status = ?, manage_stock = ?,
				stock_quantity = ?, synced_at = ?, updated_at = ?
			WHERE id = ?
		`, p.ExternalID, p.SKU, p.Name, p.Description, p.Price, p.RegularPrice,
			p.Status, p.ManageStock, p.StockQuantity, now, now, p.ID)
		if err != nil {
			return err
		}
	}
	p.SyncedAt = &now

	if mv != nil {
		if mv.OwnerKey == "" {
			mv.OwnerKey = p.InventoryKey()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (owner_key, delta, reason, reference, created_at)
			VALUES (?,?,?,?,?)
		`, mv.OwnerKey, mv.Delta, mv.Reason, mv.Reference, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const variantColumns = `id, product_id, external_id, sku, attributes, price,
	manage_stock, stock_quantity, synced_at, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (*model.Variant, error) {
	var v model.Variant
	var externalID sql.NullInt64
	var syncedAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.ProductID, &externalID, &v.SKU, &v.Attributes, &v.Price,
		&v.ManageStock, &v.StockQuantity, &syncedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalID.Valid {
		v.ExternalID = &externalID.Int64
	}
	if syncedAt.Valid {
		v.SyncedAt = &syncedAt.Time
	}
	return &v, nil
}

func (s *Store) GetVariantByExternalID(ctx context.Context, externalID int64) (*model.Variant, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE external_id = ?`, externalID)
	v, err := scanVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (s *Store) GetVariantByID(ctx context.Context, id int64) (*model.Variant, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE id = ?`, id)
	v, err := scanVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (s *Store) ListVariantsByProduct(ctx context.Context, productID int64) ([]model.Variant, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE product_id = ? ORDER BY id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// ListSyncedVariants returns variants that already have a remote
// counterpart, the working set for inventory reconciliation.
func (s *Store) ListSyncedVariants(ctx context.Context) ([]model.Variant, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE external_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// SaveImportedVariant mirrors SaveImportedProduct for a child variant.
func (s *Store) SaveImportedVariant(ctx context.Context, v *model.Variant, mv *model.StockMovement) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if v.ID == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO variants (product_id, external_id, sku, attributes, price,
				manage_stock, stock_quantity, synced_at, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?)
		`, v.ProductID, v.ExternalID, v.SKU, v.Attributes, v.Price,
			v.ManageStock, v.StockQuantity, now, now, now)
		if err != nil {
			return err
		}
		v.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE variants SET external_id = ?, sku = ?, attributes = ?, price = ?,
				manage_stock = ?, stock_quantity = ?, synced_at = ?, updated_at = ?
			WHERE id = ?
		`, v.ExternalID, v.SKU, v.Attributes, v.Price,
			v.ManageStock, v.StockQuantity, now, now, v.ID)
		if err != nil {
			return err
		}
	}
	v.SyncedAt = &now

	if mv != nil {
		if mv.OwnerKey == "" {
			mv.OwnerKey = v.InventoryKey()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (owner_key, delta, reason, reference, created_at)
			VALUES (?,?,?,?,?)
		`, mv.OwnerKey, mv.Delta, mv.Reason, mv.Reference, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetVariantQuantity applies a new variant quantity together with its
// explaining movement in one transaction.
func (s *Store) SetVariantQuantity(ctx context.Context, variantID int64, quantity int, mv *model.StockMovement) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE variants SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, now, variantID); err != nil {
		return err
	}
	if mv != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (owner_key, delta, reason, reference, created_at)
			VALUES (?,?,?,?,?)
		`, mv.OwnerKey, mv.Delta, mv.Reason, mv.Reference, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetProductQuantity applies an already-reconciled quantity together
// with its explaining movement in one transaction.
func (s *Store) SetProductQuantity(ctx context.Context, productID int64, quantity int, mv *model.StockMovement) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, now, productID); err != nil {
		return err
	}
	if mv != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (owner_key, delta, reason, reference, created_at)
			VALUES (?,?,?,?,?)
		`, mv.OwnerKey, mv.Delta, mv.Reason, mv.Reference, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
