package repository

import (
	"context"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
)

// One-shot scheduled items have no terminal "published" state: Delete is
// the completion marker. Failed publishes leave the row untouched so the
// next tick retries it.

type ScheduledPostRepository interface {
	Create(ctx context.Context, p *domain.ScheduledPost) (*domain.ScheduledPost, error)
	GetByID(ctx context.Context, id, tenantID string) (*domain.ScheduledPost, error)
	// Get fetches without a tenant scope; the dispatcher uses it to
	// re-check existence right before publishing.
	Get(ctx context.Context, id string) (*domain.ScheduledPost, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.ScheduledPost, error)
	Delete(ctx context.Context, id, tenantID string) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledPost, error)
}

type ScheduledPollRepository interface {
	Create(ctx context.Context, p *domain.ScheduledPoll) (*domain.ScheduledPoll, error)
	GetByID(ctx context.Context, id, tenantID string) (*domain.ScheduledPoll, error)
	Get(ctx context.Context, id string) (*domain.ScheduledPoll, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.ScheduledPoll, error)
	Delete(ctx context.Context, id, tenantID string) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledPoll, error)
}
