package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduledPostRepository struct {
	pool *pgxpool.Pool
}

func NewScheduledPostRepository(pool *pgxpool.Pool) *ScheduledPostRepository {
	return &ScheduledPostRepository{pool: pool}
}

const postColumns = `
	id, tenant_id, channel_id, text, image_urls, buttons,
	image_position, scheduled_date, created_at`

func (r *ScheduledPostRepository) Create(ctx context.Context, p *domain.ScheduledPost) (*domain.ScheduledPost, error) {
	buttons, err := json.Marshal(p.Buttons)
	if err != nil {
		return nil, fmt.Errorf("marshal buttons: %w", err)
	}

	query := `
		INSERT INTO scheduled_posts (
			tenant_id, channel_id, text, image_urls, buttons, image_position, scheduled_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING` + postColumns

	row := r.pool.QueryRow(ctx, query,
		p.TenantID, p.ChannelID, p.Text, p.ImageURLs, buttons, p.ImagePosition, p.ScheduledDate)
	return scanPost(row)
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.ScheduledPost, error) {
	query := `SELECT` + postColumns + `
		FROM scheduled_posts
		WHERE id = $1 AND tenant_id = $2`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	return p, err
}

func (r *ScheduledPostRepository) Get(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	query := `SELECT` + postColumns + `
		FROM scheduled_posts
		WHERE id = $1`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	return p, err
}

func (r *ScheduledPostRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.ScheduledPost, error) {
	query := `SELECT` + postColumns + `
		FROM scheduled_posts
		WHERE tenant_id = $1
		ORDER BY scheduled_date ASC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.ScheduledPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *ScheduledPostRepository) Delete(ctx context.Context, id, tenantID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM scheduled_posts WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete scheduled post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *ScheduledPostRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledPost, error) {
	query := `SELECT` + postColumns + `
		FROM scheduled_posts
		WHERE scheduled_date <= $1
		ORDER BY scheduled_date ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.ScheduledPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row pgx.Row) (*domain.ScheduledPost, error) {
	var p domain.ScheduledPost
	var buttons []byte
	err := row.Scan(
		&p.ID, &p.TenantID, &p.ChannelID, &p.Text, &p.ImageURLs, &buttons,
		&p.ImagePosition, &p.ScheduledDate, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(buttons) > 0 {
		if err := json.Unmarshal(buttons, &p.Buttons); err != nil {
			return nil, fmt.Errorf("unmarshal buttons: %w", err)
		}
	}
	return &p, nil
}

type ScheduledPollRepository struct {
	pool *pgxpool.Pool
}

func NewScheduledPollRepository(pool *pgxpool.Pool) *ScheduledPollRepository {
	return &ScheduledPollRepository{pool: pool}
}

const pollColumns = `
	id, tenant_id, channel_id, question, options, is_anonymous, scheduled_date, created_at`

func (r *ScheduledPollRepository) Create(ctx context.Context, p *domain.ScheduledPoll) (*domain.ScheduledPoll, error) {
	query := `
		INSERT INTO scheduled_polls (
			tenant_id, channel_id, question, options, is_anonymous, scheduled_date
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + pollColumns

	row := r.pool.QueryRow(ctx, query,
		p.TenantID, p.ChannelID, p.Question, p.Options, p.IsAnonymous, p.ScheduledDate)
	return scanPoll(row)
}

func (r *ScheduledPollRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.ScheduledPoll, error) {
	query := `SELECT` + pollColumns + `
		FROM scheduled_polls
		WHERE id = $1 AND tenant_id = $2`

	p, err := scanPoll(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPollNotFound
	}
	return p, err
}

func (r *ScheduledPollRepository) Get(ctx context.Context, id string) (*domain.ScheduledPoll, error) {
	query := `SELECT` + pollColumns + `
		FROM scheduled_polls
		WHERE id = $1`

	p, err := scanPoll(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPollNotFound
	}
	return p, err
}

func (r *ScheduledPollRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.ScheduledPoll, error) {
	query := `SELECT` + pollColumns + `
		FROM scheduled_polls
		WHERE tenant_id = $1
		ORDER BY scheduled_date ASC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled polls: %w", err)
	}
	defer rows.Close()

	var polls []*domain.ScheduledPoll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

func (r *ScheduledPollRepository) Delete(ctx context.Context, id, tenantID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM scheduled_polls WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete scheduled poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

func (r *ScheduledPollRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledPoll, error) {
	query := `SELECT` + pollColumns + `
		FROM scheduled_polls
		WHERE scheduled_date <= $1
		ORDER BY scheduled_date ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due polls: %w", err)
	}
	defer rows.Close()

	var polls []*domain.ScheduledPoll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

func scanPoll(row pgx.Row) (*domain.ScheduledPoll, error) {
	var p domain.ScheduledPoll
	err := row.Scan(
		&p.ID, &p.TenantID, &p.ChannelID, &p.Question, &p.Options,
		&p.IsAnonymous, &p.ScheduledDate, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
