package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/pkg/models"
)

const accountColumns = `id, role, username, email, password_hash, phone, address, gender, title,
	verified, otp, otp_expires_at, refresh_token, signed_up_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	a := &models.Account{}
	var otpExpiresAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.Role, &a.Username, &a.Email, &a.PasswordHash, &a.Phone, &a.Address, &a.Gender, &a.Title,
		&a.Verified, &a.OTP, &otpExpiresAt, &a.RefreshToken, &a.SignedUpAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if otpExpiresAt.Valid {
		a.OTPExpiresAt = &otpExpiresAt.Time
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, role, username, email, password_hash, phone, address, gender, title,
			verified, otp, otp_expires_at, refresh_token, signed_up_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Role, a.Username, a.Email, a.PasswordHash, a.Phone, a.Address, a.Gender, a.Title,
		a.Verified, a.OTP, a.OTPExpiresAt, a.RefreshToken, a.SignedUpAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicate, "email already registered")
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapNoRows(err, "account not found")
	}
	return a, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, role, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE role = $1 AND email = $2`, role, email)
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapNoRows(err, "account not found")
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET username = COALESCE($2, username),
		    phone = COALESCE($3, phone),
		    address = COALESCE($4, address),
		    gender = COALESCE($5, gender),
		    title = COALESCE($6, title),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	row := s.db.QueryRowContext(ctx, query, id, patch.Username, patch.Phone, patch.Address, patch.Gender, patch.Title)
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapNoRows(err, "account not found")
	}
	return a, nil
}

func (s *Store) SetAccountOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	return s.execAccountUpdate(ctx,
		`UPDATE accounts SET otp = $2, otp_expires_at = $3 WHERE id = $1`, id, otp, expiresAt)
}

func (s *Store) ClearAccountOTP(ctx context.Context, id string, verified bool) error {
	return s.execAccountUpdate(ctx,
		`UPDATE accounts SET otp = '', otp_expires_at = NULL, verified = verified OR $2 WHERE id = $1`, id, verified)
}

func (s *Store) SetAccountPassword(ctx context.Context, id, hash string) error {
	return s.execAccountUpdate(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (s *Store) SetAccountRefreshToken(ctx context.Context, id, token string) error {
	return s.execAccountUpdate(ctx,
		`UPDATE accounts SET refresh_token = $2 WHERE id = $1`, id, token)
}

func (s *Store) execAccountUpdate(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	return nil
}
