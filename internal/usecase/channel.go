package usecase

import (
	"context"
	"fmt"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
)

type ChannelUsecase struct {
	channels repository.ChannelRepository
}

func NewChannelUsecase(channels repository.ChannelRepository) *ChannelUsecase {
	return &ChannelUsecase{channels: channels}
}

type CreateChannelInput struct {
	TenantID string
	ChatID   string
	Title    string
	BotToken string
}

func (u *ChannelUsecase) CreateChannel(ctx context.Context, input CreateChannelInput) (*domain.Channel, error) {
	ch := &domain.Channel{
		TenantID: input.TenantID,
		ChatID:   input.ChatID,
		Title:    input.Title,
		BotToken: input.BotToken,
	}
	created, err := u.channels.Create(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return created, nil
}

func (u *ChannelUsecase) GetChannel(ctx context.Context, id, tenantID string) (*domain.Channel, error) {
	ch, err := u.channels.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

func (u *ChannelUsecase) ListChannels(ctx context.Context, tenantID string) ([]*domain.Channel, error) {
	channels, err := u.channels.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

func (u *ChannelUsecase) DeleteChannel(ctx context.Context, id, tenantID string) error {
	if err := u.channels.Delete(ctx, id, tenantID); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}
