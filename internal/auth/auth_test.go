package auth

import (
	"testing"
	"time"

	"github.com/ecomstack/storefront/internal/apperr"
)

func TestMintAndVerifyRoundTrip(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, 24*time.Hour)

	token, err := m.MintAccess("actor-1", "client")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.ActorID != "actor-1" || claims.Role != "client" {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, 24*time.Hour)
	other := NewManager("other-secret", 15*time.Minute, 24*time.Hour)

	token, err := m.MintAccess("actor-1", "client")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := other.Verify(token); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for wrong secret, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("secret", -time.Minute, 24*time.Hour)

	token, err := m.MintAccess("actor-1", "client")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := m.Verify(token); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("secret", 15*time.Minute, 24*time.Hour)

	if _, err := m.Verify("not-a-token"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for malformed token, got %v", err)
	}
}
