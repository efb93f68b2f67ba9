package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// defaultTrialCredits is granted to every new tenant on first sign-in.
const defaultTrialCredits = 10

func (r *TenantRepository) FindOrCreate(ctx context.Context, email string) (*domain.Tenant, error) {
	query := `
		INSERT INTO tenants (email, credits)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id, email, credits, credits_used, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query, email, defaultTrialCredits)
	return scanTenant(row)
}

func (r *TenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `
		SELECT id, email, credits, credits_used, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	t, err := scanTenant(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	return t, err
}

func (r *TenantRepository) CreateMagicToken(ctx context.Context, tenantID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO magic_tokens (tenant_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		tenantID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create magic token: %w", err)
	}
	return nil
}

// ClaimMagicToken marks the token used and returns it in one statement,
// so a token can never be redeemed twice.
func (r *TenantRepository) ClaimMagicToken(ctx context.Context, tokenHash string) (*domain.MagicToken, error) {
	query := `
		UPDATE magic_tokens
		SET    used_at = NOW()
		WHERE  token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		RETURNING id, tenant_id, token_hash, expires_at, used_at`

	var mt domain.MagicToken
	err := r.pool.QueryRow(ctx, query, tokenHash).
		Scan(&mt.ID, &mt.TenantID, &mt.TokenHash, &mt.ExpiresAt, &mt.UsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("claim magic token: %w", err)
	}
	return &mt, nil
}

func (r *TenantRepository) DeleteExpiredMagicTokens(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM magic_tokens WHERE expires_at < $1 OR used_at IS NOT NULL`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *TenantRepository) Balance(ctx context.Context, tenantID string) (int, error) {
	var credits int
	err := r.pool.QueryRow(ctx,
		`SELECT credits FROM tenants WHERE id = $1`, tenantID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrTenantNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	return credits, nil
}

func (r *TenantRepository) AdjustCredits(ctx context.Context, tenantID string, delta, addUsed int) (int, error) {
	query := `
		UPDATE tenants
		SET    credits      = credits + $2,
		       credits_used = credits_used + $3,
		       updated_at   = NOW()
		WHERE  id = $1
		RETURNING credits`

	var balance int
	err := r.pool.QueryRow(ctx, query, tenantID, delta, addUsed).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrTenantNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("adjust credits: %w", err)
	}
	return balance, nil
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Email, &t.Credits, &t.CreditsUsed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
