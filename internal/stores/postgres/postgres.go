// Package postgres implements the storage contracts on database/sql.
// Stock reservation and status transitions are conditional updates so the
// check and the write are one statement.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ecomstack/storefront/internal/apperr"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			price DECIMAL(10,2) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			added_by VARCHAR(64) NOT NULL,
			added_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(64) PRIMARY KEY,
			role VARCHAR(16) NOT NULL,
			username VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			gender VARCHAR(16) NOT NULL DEFAULT '',
			title VARCHAR(16) NOT NULL DEFAULT '',
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			otp VARCHAR(16) NOT NULL DEFAULT '',
			otp_expires_at TIMESTAMP,
			refresh_token TEXT NOT NULL DEFAULT '',
			signed_up_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (role, email)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			client_id VARCHAR(64) NOT NULL,
			product_id VARCHAR(64) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			unit_price DECIMAL(10,2) NOT NULL,
			quantity INTEGER NOT NULL,
			added_at TIMESTAMP NOT NULL,
			PRIMARY KEY (client_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			client_id VARCHAR(64) NOT NULL,
			client_name VARCHAR(255) NOT NULL,
			client_email VARCHAR(255) NOT NULL,
			client_phone VARCHAR(64) NOT NULL DEFAULT '',
			client_address TEXT NOT NULL DEFAULT '',
			product_id VARCHAR(64) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			unit_price DECIMAL(10,2) NOT NULL,
			quantity INTEGER NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			status VARCHAR(16) NOT NULL,
			ordered_at TIMESTAMP NOT NULL,
			dispatched_at TIMESTAMP,
			dispatched_by VARCHAR(255) NOT NULL DEFAULT '',
			received BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_client_id ON orders(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func mapNoRows(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.KindNotFound, message)
	}
	return err
}
