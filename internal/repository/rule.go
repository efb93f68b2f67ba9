package repository

import (
	"context"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
)

type RuleRepository interface {
	Create(ctx context.Context, r *domain.AutopostingRule) (*domain.AutopostingRule, error)
	GetByID(ctx context.Context, id, tenantID string) (*domain.AutopostingRule, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.AutopostingRule, error)
	Update(ctx context.Context, r *domain.AutopostingRule) (*domain.AutopostingRule, error)
	SetStatus(ctx context.Context, id, tenantID string, status domain.RuleStatus) error
	Delete(ctx context.Context, id, tenantID string) error

	// FindDue returns active rules with next_scheduled <= now, across
	// all tenants, in no particular order beyond the scan.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.AutopostingRule, error)

	// SaveRunState persists the fields an execution mutates: next
	// scheduled time, last published time, and the content-history
	// fingerprints. Status and content parameters are left untouched.
	SaveRunState(ctx context.Context, r *domain.AutopostingRule) error
}

type ListHistoryInput struct {
	RuleID     string
	TenantID   string
	CursorTime *time.Time // cursor on (created_at DESC, id DESC)
	CursorID   string
	Limit      int
}

// HistoryRepository is append-only: entries are never updated or
// deleted by the application.
type HistoryRepository interface {
	Append(ctx context.Context, e *domain.HistoryEntry) error
	ListByRule(ctx context.Context, input ListHistoryInput) ([]*domain.HistoryEntry, error)
}
