package repository

import (
	"context"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
)

type ChannelRepository interface {
	Create(ctx context.Context, ch *domain.Channel) (*domain.Channel, error)
	GetByID(ctx context.Context, id, tenantID string) (*domain.Channel, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Channel, error)
	Delete(ctx context.Context, id, tenantID string) error
}
