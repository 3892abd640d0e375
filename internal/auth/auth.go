// Package auth mints and verifies the signed claims carried as bearer
// tokens or cookies. The core services never parse tokens themselves; they
// receive a verified actor id resolved at the boundary.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecomstack/storefront/internal/apperr"
)

type Claims struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) MintAccess(actorID, role string) (string, error) {
	return m.mint(actorID, role, m.accessTTL)
}

func (m *Manager) MintRefresh(actorID, role string) (string, error) {
	return m.mint(actorID, role, m.refreshTTL)
}

func (m *Manager) mint(actorID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ActorID: actorID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}
	return signed, nil
}

func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.KindUnauthorized, "unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid or expired token", err)
	}
	return claims, nil
}
