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

type RuleRepository struct {
	pool *pgxpool.Pool
}

func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

const ruleColumns = `
	id, tenant_id, channel_id, topic, keywords, source_urls,
	image_generation, avoid_duplication, check_days,
	frequency, custom_interval, custom_time_unit, preferred_time, preferred_days,
	next_scheduled, status, content_history, last_published,
	created_at, updated_at`

func (r *RuleRepository) Create(ctx context.Context, rule *domain.AutopostingRule) (*domain.AutopostingRule, error) {
	query := `
		INSERT INTO autoposting_rules (
			tenant_id, channel_id, topic, keywords, source_urls,
			image_generation, avoid_duplication, check_days,
			frequency, custom_interval, custom_time_unit, preferred_time, preferred_days,
			next_scheduled, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING` + ruleColumns

	row := r.pool.QueryRow(ctx, query,
		rule.TenantID, rule.ChannelID, rule.Topic, rule.Keywords, rule.SourceURLs,
		rule.ImageGeneration, rule.AvoidDuplication, rule.CheckDays,
		rule.Recurrence.Frequency, rule.Recurrence.CustomInterval, rule.Recurrence.CustomTimeUnit,
		rule.Recurrence.PreferredTime, rule.Recurrence.PreferredDays,
		rule.Recurrence.NextScheduled, rule.Status,
	)
	return scanRule(row)
}

func (r *RuleRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.AutopostingRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM autoposting_rules
		WHERE id = $1 AND tenant_id = $2`

	rule, err := scanRule(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	return rule, err
}

func (r *RuleRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.AutopostingRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM autoposting_rules
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *RuleRepository) Update(ctx context.Context, rule *domain.AutopostingRule) (*domain.AutopostingRule, error) {
	query := `
		UPDATE autoposting_rules
		SET    channel_id = $3, topic = $4, keywords = $5, source_urls = $6,
		       image_generation = $7, avoid_duplication = $8, check_days = $9,
		       frequency = $10, custom_interval = $11, custom_time_unit = $12,
		       preferred_time = $13, preferred_days = $14, next_scheduled = $15,
		       updated_at = NOW()
		WHERE  id = $1 AND tenant_id = $2
		RETURNING` + ruleColumns

	row := r.pool.QueryRow(ctx, query,
		rule.ID, rule.TenantID, rule.ChannelID, rule.Topic, rule.Keywords, rule.SourceURLs,
		rule.ImageGeneration, rule.AvoidDuplication, rule.CheckDays,
		rule.Recurrence.Frequency, rule.Recurrence.CustomInterval, rule.Recurrence.CustomTimeUnit,
		rule.Recurrence.PreferredTime, rule.Recurrence.PreferredDays, rule.Recurrence.NextScheduled,
	)
	updated, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	return updated, err
}

func (r *RuleRepository) SetStatus(ctx context.Context, id, tenantID string, status domain.RuleStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE autoposting_rules SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, status)
	if err != nil {
		return fmt.Errorf("set rule status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id, tenantID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM autoposting_rules WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func (r *RuleRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.AutopostingRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM autoposting_rules
		WHERE status = 'active' AND next_scheduled IS NOT NULL AND next_scheduled <= $1
		ORDER BY next_scheduled ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// SaveRunState writes only the fields an execution mutates.
func (r *RuleRepository) SaveRunState(ctx context.Context, rule *domain.AutopostingRule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE autoposting_rules
		SET    next_scheduled  = $2,
		       last_published  = $3,
		       content_history = $4,
		       updated_at      = NOW()
		WHERE  id = $1`,
		rule.ID, rule.Recurrence.NextScheduled, rule.LastPublished, rule.ContentHistory)
	if err != nil {
		return fmt.Errorf("save rule run state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func collectRules(rows pgx.Rows) ([]*domain.AutopostingRule, error) {
	var rules []*domain.AutopostingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row pgx.Row) (*domain.AutopostingRule, error) {
	var rule domain.AutopostingRule
	err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.ChannelID, &rule.Topic, &rule.Keywords, &rule.SourceURLs,
		&rule.ImageGeneration, &rule.AvoidDuplication, &rule.CheckDays,
		&rule.Recurrence.Frequency, &rule.Recurrence.CustomInterval, &rule.Recurrence.CustomTimeUnit,
		&rule.Recurrence.PreferredTime, &rule.Recurrence.PreferredDays,
		&rule.Recurrence.NextScheduled, &rule.Status, &rule.ContentHistory, &rule.LastPublished,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
