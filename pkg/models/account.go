package models

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

type Account struct {
	ID           string     `json:"id"`
	Role         string     `json:"role"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	Gender       string     `json:"gender"`
	Title        string     `json:"title"`
	Verified     bool       `json:"verified"`
	OTP          string     `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	RefreshToken string     `json:"-"`
	SignedUpAt   time.Time  `json:"signed_up_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type AccountPatch struct {
	Username *string `json:"username,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Gender   *string `json:"gender,omitempty"`

	// Title is derived from Gender by the accounts service, never taken
	// from request bodies.
	Title *string `json:"-"`
}
