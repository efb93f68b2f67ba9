package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func (r *HistoryRepository) Append(ctx context.Context, e *domain.HistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO autoposting_history (
			rule_id, tenant_id, content, image_url, status, delivery_id, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.RuleID, e.TenantID, e.Content, e.ImageURL, e.Status, e.DeliveryID, e.Error)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListByRule(ctx context.Context, input repository.ListHistoryInput) ([]*domain.HistoryEntry, error) {
	args := []any{input.RuleID, input.TenantID}
	where := []string{"rule_id = $1", "tenant_id = $2"}

	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT id, rule_id, tenant_id, content, image_url, status, delivery_id, error, created_at
		FROM autoposting_history
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`,
		strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.RuleID, &e.TenantID, &e.Content, &e.ImageURL,
			&e.Status, &e.DeliveryID, &e.Error, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
