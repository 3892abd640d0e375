package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

const orderColumns = `id, client_id, client_name, client_email, client_phone, client_address,
	product_id, product_name, unit_price, quantity, total_amount,
	status, ordered_at, dispatched_at, dispatched_by, received`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	o := &models.Order{}
	var dispatchedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.ClientID, &o.ClientName, &o.ClientEmail, &o.ClientPhone, &o.ClientAddress,
		&o.ProductID, &o.ProductName, &o.UnitPrice, &o.Quantity, &o.TotalAmount,
		&o.Status, &o.OrderedAt, &dispatchedAt, &o.DispatchedBy, &o.Received,
	)
	if err != nil {
		return nil, err
	}
	if dispatchedAt.Valid {
		o.DispatchedAt = &dispatchedAt.Time
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (id, client_id, client_name, client_email, client_phone, client_address,
			product_id, product_name, unit_price, quantity, total_amount,
			status, ordered_at, dispatched_at, dispatched_by, received)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.ClientID, o.ClientName, o.ClientEmail, o.ClientPhone, o.ClientAddress,
		o.ProductID, o.ProductName, o.UnitPrice, o.Quantity, o.TotalAmount,
		o.Status, o.OrderedAt, o.DispatchedAt, o.DispatchedBy, o.Received)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicate, "order already exists")
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, mapNoRows(err, "order not found")
	}
	return o, nil
}

func (s *Store) ListOrdersByClient(ctx context.Context, clientID string) ([]models.Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE client_id = $1 ORDER BY ordered_at DESC`, clientID)
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY ordered_at DESC`)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// TransitionOrder writes the new status only if the current status still
// matches from; the status check and the write are one statement, so a
// racing accept and reject produce exactly one winner.
func (s *Store) TransitionOrder(ctx context.Context, id, from string, change models.StatusChange) (*models.Order, error) {
	var updated *models.Order

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE orders
			SET status = $3,
			    dispatched_at = COALESCE($4, dispatched_at),
			    dispatched_by = CASE WHEN $5 = '' THEN dispatched_by ELSE $5 END
			WHERE id = $1 AND status = $2
			RETURNING ` + orderColumns
		row := tx.QueryRowContext(ctx, query, id, from, change.To, change.DispatchedAt, change.DispatchedByName)
		o, err := scanOrder(row)
		if err == nil {
			updated = o
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transition order: %w", err)
		}

		// Zero rows: either the order is gone or it already left the
		// expected status. Look again within the tx to classify.
		var current string
		err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
		if err != nil {
			return mapNoRows(err, "order not found")
		}
		return apperr.Newf(apperr.KindInvalidState, "order is %s, expected %s", current, from)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) MarkOrderReceived(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET received = TRUE WHERE id = $1 AND status = $2`,
		id, models.OrderStatusAccepted)
	if err != nil {
		return fmt.Errorf("mark order received: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, getErr := s.GetOrder(ctx, id)
		if getErr != nil {
			return getErr
		}
		return apperr.Newf(apperr.KindInvalidState, "order is %s, expected accepted", existing.Status)
	}
	return nil
}
