package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/recurrence"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
	"github.com/Stepanishin/telepublisher-be/internal/scheduler"
)

// ruleExecutor and inflightGuard are satisfied by scheduler.AutopostExecutor
// and scheduler.InFlight; narrowed here so tests can inject fakes.

type ruleExecutor interface {
	Execute(ctx context.Context, rule *domain.AutopostingRule) (scheduler.Outcome, error)
}

type inflightGuard interface {
	TryAcquire(id string) bool
	Release(id string)
}

type RuleUsecase struct {
	rules    repository.RuleRepository
	channels repository.ChannelRepository
	history  repository.HistoryRepository
	executor ruleExecutor
	inflight inflightGuard
}

func NewRuleUsecase(
	rules repository.RuleRepository,
	channels repository.ChannelRepository,
	history repository.HistoryRepository,
	executor ruleExecutor,
	inflight inflightGuard,
) *RuleUsecase {
	return &RuleUsecase{
		rules:    rules,
		channels: channels,
		history:  history,
		executor: executor,
		inflight: inflight,
	}
}

type RecurrenceInput struct {
	Frequency      domain.Frequency
	CustomInterval int
	CustomTimeUnit domain.TimeUnit
	PreferredTime  string
	PreferredDays  []string
}

type CreateRuleInput struct {
	TenantID  string
	ChannelID string

	Topic      string
	Keywords   []string
	SourceURLs []string

	ImageGeneration  bool
	AvoidDuplication bool
	CheckDays        int

	Recurrence RecurrenceInput
}

func validateRecurrence(in RecurrenceInput) (domain.Recurrence, error) {
	rec := domain.Recurrence{
		Frequency:      in.Frequency,
		CustomInterval: in.CustomInterval,
		CustomTimeUnit: in.CustomTimeUnit,
		PreferredTime:  in.PreferredTime,
		PreferredDays:  in.PreferredDays,
	}

	switch in.Frequency {
	case domain.FrequencyDaily:
	case domain.FrequencyWeekly:
		if len(rec.PreferredDays) == 0 {
			rec.PreferredDays = []string{"monday", "wednesday", "friday"}
		}
	case domain.FrequencyCustom:
		if in.CustomInterval < 1 {
			return domain.Recurrence{}, domain.ErrInvalidRecurrence
		}
		switch in.CustomTimeUnit {
		case domain.UnitMinutes, domain.UnitHours, domain.UnitDays:
		default:
			return domain.Recurrence{}, domain.ErrInvalidRecurrence
		}
	default:
		return domain.Recurrence{}, domain.ErrInvalidRecurrence
	}
	return rec, nil
}

func (u *RuleUsecase) CreateRule(ctx context.Context, input CreateRuleInput) (*domain.AutopostingRule, error) {
	rec, err := validateRecurrence(input.Recurrence)
	if err != nil {
		return nil, err
	}

	// Channel must exist and belong to the tenant.
	if _, err := u.channels.GetByID(ctx, input.ChannelID, input.TenantID); err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}

	if input.CheckDays <= 0 {
		input.CheckDays = 7
	}

	next := recurrence.Next(rec, time.Now())
	rec.NextScheduled = &next

	r := &domain.AutopostingRule{
		TenantID:         input.TenantID,
		ChannelID:        input.ChannelID,
		Topic:            input.Topic,
		Keywords:         input.Keywords,
		SourceURLs:       input.SourceURLs,
		ImageGeneration:  input.ImageGeneration,
		AvoidDuplication: input.AvoidDuplication,
		CheckDays:        input.CheckDays,
		Recurrence:       rec,
		Status:           domain.RuleActive,
	}

	created, err := u.rules.Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return created, nil
}

func (u *RuleUsecase) GetRule(ctx context.Context, id, tenantID string) (*domain.AutopostingRule, error) {
	r, err := u.rules.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

func (u *RuleUsecase) ListRules(ctx context.Context, tenantID string) ([]*domain.AutopostingRule, error) {
	rules, err := u.rules.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

type UpdateRuleInput struct {
	ID       string
	TenantID string

	Topic      string
	Keywords   []string
	SourceURLs []string

	ImageGeneration  bool
	AvoidDuplication bool
	CheckDays        int

	Recurrence RecurrenceInput
}

// UpdateRule replaces the rule's content settings and recurrence. The
// next scheduled time is recomputed from the new recurrence so edits
// take effect immediately instead of after the old slot fires.
func (u *RuleUsecase) UpdateRule(ctx context.Context, input UpdateRuleInput) (*domain.AutopostingRule, error) {
	rec, err := validateRecurrence(input.Recurrence)
	if err != nil {
		return nil, err
	}

	r, err := u.rules.GetByID(ctx, input.ID, input.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}

	r.Topic = input.Topic
	r.Keywords = input.Keywords
	r.SourceURLs = input.SourceURLs
	r.ImageGeneration = input.ImageGeneration
	r.AvoidDuplication = input.AvoidDuplication
	if input.CheckDays > 0 {
		r.CheckDays = input.CheckDays
	}

	next := recurrence.Next(rec, time.Now())
	rec.NextScheduled = &next
	r.Recurrence = rec

	updated, err := u.rules.Update(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return updated, nil
}

func (u *RuleUsecase) PauseRule(ctx context.Context, id, tenantID string) error {
	if err := u.rules.SetStatus(ctx, id, tenantID, domain.RuleInactive); err != nil {
		return fmt.Errorf("pause rule: %w", err)
	}
	return nil
}

func (u *RuleUsecase) ResumeRule(ctx context.Context, id, tenantID string) error {
	if err := u.rules.SetStatus(ctx, id, tenantID, domain.RuleActive); err != nil {
		return fmt.Errorf("resume rule: %w", err)
	}
	return nil
}

func (u *RuleUsecase) DeleteRule(ctx context.Context, id, tenantID string) error {
	if err := u.rules.Delete(ctx, id, tenantID); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// ExecuteNow runs a rule outside its schedule. It contends on the same
// in-flight guard as the dispatcher, so a manual run and a cron run of
// the same rule can never overlap.
func (u *RuleUsecase) ExecuteNow(ctx context.Context, id, tenantID string) (scheduler.Outcome, error) {
	r, err := u.rules.GetByID(ctx, id, tenantID)
	if err != nil {
		return scheduler.Outcome{}, fmt.Errorf("get rule: %w", err)
	}

	if !u.inflight.TryAcquire(r.ID) {
		return scheduler.Outcome{}, domain.ErrAlreadyInFlight
	}
	defer u.inflight.Release(r.ID)

	return u.executor.Execute(ctx, r)
}

type ListHistoryInput struct {
	RuleID   string
	TenantID string
	Cursor   string
	Limit    int
}

type ListHistoryResult struct {
	Entries    []*domain.HistoryEntry
	NextCursor *string
}

type historyCursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

func decodeHistoryCursor(s string) (*time.Time, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}
	var c historyCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, "", fmt.Errorf("unmarshal cursor: %w", err)
	}
	return &c.CreatedAt, c.ID, nil
}

func encodeHistoryCursor(createdAt time.Time, id string) string {
	b, _ := json.Marshal(historyCursor{CreatedAt: createdAt, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// ListHistory pages the audit log newest-first with an opaque cursor.
func (u *RuleUsecase) ListHistory(ctx context.Context, input ListHistoryInput) (ListHistoryResult, error) {
	// Verify ownership before touching the history table.
	if _, err := u.rules.GetByID(ctx, input.RuleID, input.TenantID); err != nil {
		return ListHistoryResult{}, fmt.Errorf("get rule: %w", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	repoInput := repository.ListHistoryInput{
		RuleID:   input.RuleID,
		TenantID: input.TenantID,
		Limit:    limit + 1,
	}
	if input.Cursor != "" {
		cursorTime, cursorID, err := decodeHistoryCursor(input.Cursor)
		if err != nil {
			return ListHistoryResult{}, fmt.Errorf("invalid cursor: %w", err)
		}
		repoInput.CursorTime = cursorTime
		repoInput.CursorID = cursorID
	}

	entries, err := u.history.ListByRule(ctx, repoInput)
	if err != nil {
		return ListHistoryResult{}, fmt.Errorf("list history: %w", err)
	}

	var nextCursor *string
	if len(entries) == limit+1 {
		last := entries[limit]
		s := encodeHistoryCursor(last.CreatedAt, last.ID)
		nextCursor = &s
		entries = entries[:limit]
	}

	return ListHistoryResult{Entries: entries, NextCursor: nextCursor}, nil
}
