package postgres

import (
	"context"
	"fmt"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, name, price, quantity, added_by, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Quantity, p.AddedBy, p.AddedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindDuplicate, "product %q already exists", p.Name)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `
		SELECT id, name, price, quantity, added_by, added_at, updated_at
		FROM products WHERE id = $1
	`
	p := &models.Product{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Quantity, &p.AddedBy, &p.AddedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, "product not found")
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	query := `
		SELECT id, name, price, quantity, added_by, added_at, updated_at
		FROM products ORDER BY added_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.AddedBy, &p.AddedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct applies the patch in one statement. The quantity column is
// incremented, not replaced: admin updates add on top of existing stock.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = COALESCE($2, name),
		    price = COALESCE($3, price),
		    quantity = quantity + COALESCE($4, 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, price, quantity, added_by, added_at, updated_at
	`
	p := &models.Product{}
	err := s.db.QueryRowContext(ctx, query, id, patch.Name, patch.Price, patch.Quantity).Scan(
		&p.ID, &p.Name, &p.Price, &p.Quantity, &p.AddedBy, &p.AddedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.New(apperr.KindDuplicate, "product name already exists")
		}
		return nil, mapNoRows(err, "product not found")
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "product not found")
	}
	return nil
}

// ReserveStock decrements quantity only if enough stock remains; the check
// and the decrement are one statement, so concurrent reservations on the
// same product serialize at the row.
func (s *Store) ReserveStock(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
	`
	result, err := s.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing product from an out-of-stock one.
	var name string
	err = s.db.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, id).Scan(&name)
	if err != nil {
		return mapNoRows(err, "product not found")
	}
	return apperr.Newf(apperr.KindInsufficientStock, "insufficient stock for %s", name)
}

func (s *Store) ReleaseStock(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE products
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "product not found")
	}
	return nil
}
