package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

func (r *ChannelRepository) Create(ctx context.Context, ch *domain.Channel) (*domain.Channel, error) {
	query := `
		INSERT INTO channels (tenant_id, chat_id, title, bot_token)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, chat_id, title, bot_token, created_at`

	row := r.pool.QueryRow(ctx, query, ch.TenantID, ch.ChatID, ch.Title, ch.BotToken)
	return scanChannel(row)
}

func (r *ChannelRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.Channel, error) {
	query := `
		SELECT id, tenant_id, chat_id, title, bot_token, created_at
		FROM channels
		WHERE id = $1 AND tenant_id = $2`

	ch, err := scanChannel(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	return ch, err
}

func (r *ChannelRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Channel, error) {
	query := `
		SELECT id, tenant_id, chat_id, title, bot_token, created_at
		FROM channels
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) Delete(ctx context.Context, id, tenantID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM channels WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var ch domain.Channel
	err := row.Scan(&ch.ID, &ch.TenantID, &ch.ChatID, &ch.Title, &ch.BotToken, &ch.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}
