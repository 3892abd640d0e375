// Package accounts handles identity: signup, OTP verification, signin,
// password reset and profile updates for admins and clients. OTP state is
// persisted per account with an expiry; nothing request-scoped lives on the
// service itself, so concurrent verifications cannot clobber each other.
package accounts

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/internal/auth"
	"github.com/ecomstack/storefront/pkg/models"
)

type Store interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, role, email string) (*models.Account, error)
	UpdateAccount(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error)
	SetAccountOTP(ctx context.Context, id, otp string, expiresAt time.Time) error
	ClearAccountOTP(ctx context.Context, id string, verified bool) error
	SetAccountPassword(ctx context.Context, id, hash string) error
	SetAccountRefreshToken(ctx context.Context, id, token string) error
}

// OTPSender delivers one-time codes out of band. Best effort: a failed
// delivery is logged by the implementation, never returned here.
type OTPSender interface {
	OTPIssued(account *models.Account, code string)
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Gender   string `json:"gender"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Service struct {
	store  Store
	tokens *auth.Manager
	sender OTPSender
	otpTTL time.Duration
	logger *logrus.Logger
}

func NewService(store Store, tokens *auth.Manager, otpTTL time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		otpTTL: otpTTL,
		logger: logger,
	}
}

func (s *Service) SetOTPSender(sender OTPSender) {
	s.sender = sender
}

// Signup creates an unverified account and issues an OTP for verification.
func (s *Service) Signup(ctx context.Context, role string, req SignupRequest) (*models.Account, error) {
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return nil, apperr.New(apperr.KindValidation, "username, email and password are required")
	}
	if role != models.RoleAdmin && role != models.RoleClient {
		return nil, apperr.Newf(apperr.KindValidation, "unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	now := time.Now()
	account := &models.Account{
		ID:           uuid.New().String(),
		Role:         role,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Address:      req.Address,
		Gender:       req.Gender,
		Title:        titleForGender(req.Gender),
		SignedUpAt:   now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	if err := s.issueOTP(ctx, account); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"role":       role,
	}).Info("Account created, verification OTP issued")

	return account, nil
}

// VerifySignup checks the OTP issued at signup and marks the account
// verified. Expired or wrong codes fail with Unauthorized.
func (s *Service) VerifySignup(ctx context.Context, role, email, otp string) error {
	account, err := s.store.GetAccountByEmail(ctx, role, email)
	if err != nil {
		return err
	}
	if err := checkOTP(account, otp); err != nil {
		return err
	}
	if err := s.store.ClearAccountOTP(ctx, account.ID, true); err != nil {
		return err
	}

	s.logger.WithField("account_id", account.ID).Info("Account verified")
	return nil
}

func (s *Service) Signin(ctx context.Context, role, email, password string) (*TokenPair, *models.Account, error) {
	account, err := s.store.GetAccountByEmail(ctx, role, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
		return nil, nil, err
	}

	if !account.Verified {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "account is not verified")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	access, err := s.tokens.MintAccess(account.ID, account.Role)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.tokens.MintRefresh(account.ID, account.Role)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.SetAccountRefreshToken(ctx, account.ID, refresh); err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"role":       account.Role,
	}).Info("Signin successful")

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, account, nil
}

func (s *Service) Logout(ctx context.Context, accountID string) error {
	return s.store.SetAccountRefreshToken(ctx, accountID, "")
}

// RequestPasswordReset issues a fresh OTP to the account's email.
func (s *Service) RequestPasswordReset(ctx context.Context, role, email string) error {
	account, err := s.store.GetAccountByEmail(ctx, role, email)
	if err != nil {
		return err
	}

	if err := s.issueOTP(ctx, account); err != nil {
		return err
	}

	s.logger.WithField("account_id", account.ID).Info("Password reset OTP issued")
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, role, email, otp, newPassword string) error {
	if newPassword == "" {
		return apperr.New(apperr.KindValidation, "new password is required")
	}

	account, err := s.store.GetAccountByEmail(ctx, role, email)
	if err != nil {
		return err
	}
	if err := checkOTP(account, otp); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	if err := s.store.SetAccountPassword(ctx, account.ID, string(hash)); err != nil {
		return err
	}
	if err := s.store.ClearAccountOTP(ctx, account.ID, false); err != nil {
		return err
	}

	s.logger.WithField("account_id", account.ID).Info("Password reset")
	return nil
}

// Account resolves a verified actor id; the order lifecycle uses this as
// its identity source.
func (s *Service) Account(ctx context.Context, id string) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	if patch.Gender != nil {
		title := titleForGender(*patch.Gender)
		patch.Title = &title
	}
	return s.store.UpdateAccount(ctx, id, patch)
}

func (s *Service) issueOTP(ctx context.Context, account *models.Account) error {
	code, err := generateOTP()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to generate OTP", err)
	}

	expiresAt := time.Now().Add(s.otpTTL)
	if err := s.store.SetAccountOTP(ctx, account.ID, code, expiresAt); err != nil {
		return err
	}

	if s.sender != nil {
		s.sender.OTPIssued(account, code)
	}
	return nil
}

func checkOTP(account *models.Account, otp string) error {
	if account.OTP == "" || account.OTPExpiresAt == nil {
		return apperr.New(apperr.KindUnauthorized, "no verification code pending")
	}
	if time.Now().After(*account.OTPExpiresAt) {
		return apperr.New(apperr.KindUnauthorized, "verification code expired")
	}
	if account.OTP != otp {
		return apperr.New(apperr.KindUnauthorized, "wrong verification code")
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func titleForGender(gender string) string {
	switch gender {
	case "male":
		return "Mr."
	case "female":
		return "Ms."
	default:
		return "Mx."
	}
}
