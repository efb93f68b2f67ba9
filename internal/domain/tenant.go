package domain

import (
	"errors"
	"time"
)

var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTokenInvalid        = errors.New("token is invalid or expired")
	ErrInsufficientCredits = errors.New("not enough AI credits")
)

// Tenant is the owning user account for channels, rules, and scheduled items.
type Tenant struct {
	ID          string
	Email       string
	Credits     int // remaining AI credit balance
	CreditsUsed int // lifetime counter, never decremented
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MagicToken struct {
	ID        string
	TenantID  string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
}
