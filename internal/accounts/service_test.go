package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/internal/auth"
	"github.com/ecomstack/storefront/internal/stores/memstore"
	"github.com/ecomstack/storefront/pkg/models"
)

// otpCatcher records the last code issued per email, standing in for the
// notification dispatcher.
type otpCatcher struct {
	mu    sync.Mutex
	codes map[string]string
}

func newOTPCatcher() *otpCatcher {
	return &otpCatcher{codes: make(map[string]string)}
}

func (c *otpCatcher) OTPIssued(account *models.Account, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[account.Email] = code
}

func (c *otpCatcher) code(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

func newTestService(t *testing.T, otpTTL time.Duration) (*Service, *otpCatcher) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	tokens := auth.NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	svc := NewService(memstore.New(), tokens, otpTTL, logger)

	catcher := newOTPCatcher()
	svc.SetOTPSender(catcher)
	return svc, catcher
}

func signupRequest(email string) SignupRequest {
	return SignupRequest{
		Username: "Ada",
		Email:    email,
		Password: "s3cret-pw",
		Phone:    "555-0100",
		Address:  "1 Main St",
		Gender:   "female",
	}
}

func TestSignupVerifySigninFlow(t *testing.T) {
	svc, catcher := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	account, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if account.Verified {
		t.Error("account must start unverified")
	}
	if account.Title != "Ms." {
		t.Errorf("title not derived from gender: %q", account.Title)
	}

	// Signin before verification is refused.
	if _, _, err := svc.Signin(ctx, models.RoleClient, "ada@example.com", "s3cret-pw"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized before verification, got %v", err)
	}

	code := catcher.code("ada@example.com")
	if len(code) != 6 {
		t.Fatalf("expected 6-digit OTP, got %q", code)
	}

	if err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	pair, signed, err := svc.Signin(ctx, models.RoleClient, "ada@example.com", "s3cret-pw")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("signin must return both tokens")
	}
	if signed.ID != account.ID {
		t.Errorf("signin returned wrong account: %s", signed.ID)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc, _ := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", "000000")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for wrong code, got %v", err)
	}
}

func TestVerifyConsumesCode(t *testing.T) {
	svc, catcher := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	code := catcher.code("ada@example.com")

	if err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// The code is single-use.
	err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", code)
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized reusing a consumed code, got %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	// A negative TTL makes every issued code already expired.
	svc, catcher := newTestService(t, -time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	code := catcher.code("ada@example.com")

	err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", code)
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for expired code, got %v", err)
	}
}

func TestSignupDuplicateEmailSameRole(t *testing.T) {
	svc, _ := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	_, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com"))
	if !apperr.Is(err, apperr.KindDuplicate) {
		t.Fatalf("expected Duplicate, got %v", err)
	}

	// The same email under the other role is a distinct account.
	if _, err := svc.Signup(ctx, models.RoleAdmin, signupRequest("ada@example.com")); err != nil {
		t.Errorf("same email under admin role should be allowed: %v", err)
	}
}

func TestSigninWrongPassword(t *testing.T) {
	svc, catcher := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", catcher.code("ada@example.com")); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	_, _, err := svc.Signin(ctx, models.RoleClient, "ada@example.com", "wrong-pw")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestSigninUnknownEmailIsUnauthorized(t *testing.T) {
	svc, _ := newTestService(t, 5*time.Minute)

	// An unknown email must not be distinguishable from a bad password.
	_, _, err := svc.Signin(context.Background(), models.RoleClient, "nobody@example.com", "pw")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	svc, catcher := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", catcher.code("ada@example.com")); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, models.RoleClient, "ada@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	resetCode := catcher.code("ada@example.com")

	if err := svc.ResetPassword(ctx, models.RoleClient, "ada@example.com", resetCode, "new-pw"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, _, err := svc.Signin(ctx, models.RoleClient, "ada@example.com", "s3cret-pw"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, _, err := svc.Signin(ctx, models.RoleClient, "ada@example.com", "new-pw"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
}

func TestUpdateProfileDerivesTitle(t *testing.T) {
	svc, _ := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	account, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	gender := "male"
	updated, err := svc.UpdateProfile(ctx, account.ID, models.AccountPatch{Gender: &gender})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "Mr." {
		t.Errorf("title not re-derived from gender: %q", updated.Title)
	}
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	svc, catcher := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	account, err := svc.Signup(ctx, models.RoleClient, signupRequest("ada@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if err := svc.VerifySignup(ctx, models.RoleClient, "ada@example.com", catcher.code("ada@example.com")); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if _, _, err := svc.Signin(ctx, models.RoleClient, "ada@example.com", "s3cret-pw"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}

	if err := svc.Logout(ctx, account.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	stored, err := svc.Account(ctx, account.ID)
	if err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Error("refresh token should be cleared on logout")
	}
}
