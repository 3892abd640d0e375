package postgres

import (
	"context"
	"fmt"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

func (s *Store) AddCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (client_id, product_id, product_name, unit_price, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ClientID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicate, "product already in cart")
		}
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *Store) RemoveCartItem(ctx context.Context, clientID, productID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE client_id = $1 AND product_id = $2`, clientID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "product not in cart")
	}
	return nil
}

func (s *Store) ListCartItems(ctx context.Context, clientID string) ([]models.CartItem, error) {
	query := `
		SELECT client_id, product_id, product_name, unit_price, quantity, added_at
		FROM cart_items WHERE client_id = $1 ORDER BY added_at
	`
	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ClientID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
