package repository

import (
	"context"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
)

// UseCases depend on interfaces, not concrete implementations, so the
// DB can be swapped and tests can inject fakes.
type TenantRepository interface {
	FindOrCreate(ctx context.Context, email string) (*domain.Tenant, error)
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)

	CreateMagicToken(ctx context.Context, tenantID, tokenHash string, expiresAt time.Time) error
	ClaimMagicToken(ctx context.Context, tokenHash string) (*domain.MagicToken, error)
	// DeleteExpiredMagicTokens is invoked by the daily maintenance sweep.
	DeleteExpiredMagicTokens(ctx context.Context, cutoff time.Time) (int, error)

	Balance(ctx context.Context, tenantID string) (int, error)
	// AdjustCredits atomically applies delta to the balance and addUsed
	// to the lifetime counter, returning the new balance.
	AdjustCredits(ctx context.Context, tenantID string, delta, addUsed int) (int, error)
}
