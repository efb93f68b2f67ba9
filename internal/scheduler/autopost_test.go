package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/dupcheck"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
	"github.com/Stepanishin/telepublisher-be/internal/scheduler"
)

// ---- fakes ----

type fakeChannelRepo struct {
	getByID func(ctx context.Context, id, tenantID string) (*domain.Channel, error)
}

func (r *fakeChannelRepo) Create(context.Context, *domain.Channel) (*domain.Channel, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeChannelRepo) GetByID(ctx context.Context, id, tenantID string) (*domain.Channel, error) {
	return r.getByID(ctx, id, tenantID)
}

func (r *fakeChannelRepo) ListByTenant(context.Context, string) ([]*domain.Channel, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeChannelRepo) Delete(context.Context, string, string) error {
	return errors.New("not implemented")
}

type fakeRuleRepo struct {
	saveRunState func(ctx context.Context, r *domain.AutopostingRule) error
	findDue      func(ctx context.Context, now time.Time, limit int) ([]*domain.AutopostingRule, error)
}

func (r *fakeRuleRepo) Create(context.Context, *domain.AutopostingRule) (*domain.AutopostingRule, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRuleRepo) GetByID(context.Context, string, string) (*domain.AutopostingRule, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRuleRepo) ListByTenant(context.Context, string) ([]*domain.AutopostingRule, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRuleRepo) Update(context.Context, *domain.AutopostingRule) (*domain.AutopostingRule, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRuleRepo) SetStatus(context.Context, string, string, domain.RuleStatus) error {
	return errors.New("not implemented")
}

func (r *fakeRuleRepo) Delete(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (r *fakeRuleRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.AutopostingRule, error) {
	if r.findDue == nil {
		return nil, nil
	}
	return r.findDue(ctx, now, limit)
}

func (r *fakeRuleRepo) SaveRunState(ctx context.Context, rule *domain.AutopostingRule) error {
	if r.saveRunState == nil {
		return nil
	}
	return r.saveRunState(ctx, rule)
}

type fakeHistoryRepo struct {
	entries []*domain.HistoryEntry
}

func (r *fakeHistoryRepo) Append(_ context.Context, e *domain.HistoryEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeHistoryRepo) ListByRule(context.Context, repository.ListHistoryInput) ([]*domain.HistoryEntry, error) {
	return nil, errors.New("not implemented")
}

type fakeCredits struct {
	balance  int
	debits   []int
	refunds  []int
	balErr   error
	debitErr error
}

func (c *fakeCredits) Balance(context.Context, string) (int, error) {
	return c.balance, c.balErr
}

func (c *fakeCredits) Debit(_ context.Context, _ string, amount int) (int, error) {
	if c.debitErr != nil {
		return 0, c.debitErr
	}
	c.debits = append(c.debits, amount)
	c.balance -= amount
	return c.balance, nil
}

func (c *fakeCredits) Credit(_ context.Context, _ string, amount int) (int, error) {
	c.refunds = append(c.refunds, amount)
	c.balance += amount
	return c.balance, nil
}

type fakeTextGen struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

func (g *fakeTextGen) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt)
}

type fakeImageGen struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

func (g *fakeImageGen) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt)
}

type fakeFetcher struct {
	fetch func(ctx context.Context, urls []string) ([]domain.SourceContent, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, urls []string) ([]domain.SourceContent, error) {
	if f.fetch == nil {
		return nil, nil
	}
	return f.fetch(ctx, urls)
}

type fakePublisher struct {
	published []domain.PublishInput
	polls     []domain.PollInput
	result    domain.PublishResult
}

func (p *fakePublisher) Publish(_ context.Context, in domain.PublishInput) domain.PublishResult {
	p.published = append(p.published, in)
	return p.result
}

func (p *fakePublisher) PublishPoll(_ context.Context, in domain.PollInput) domain.PublishResult {
	p.polls = append(p.polls, in)
	return p.result
}

// ---- helpers ----

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const generatedText = "Golang developers build concurrent network services using goroutines channels worker pools efficiently today"

func activeRule() *domain.AutopostingRule {
	return &domain.AutopostingRule{
		ID:        "rule-1",
		TenantID:  "tenant-1",
		ChannelID: "chan-1",
		Topic:     "Go concurrency",
		Recurrence: domain.Recurrence{
			Frequency:     domain.FrequencyDaily,
			PreferredTime: "12:00",
		},
		Status:    domain.RuleActive,
		CheckDays: 7,
	}
}

func testChannel() *domain.Channel {
	return &domain.Channel{
		ID:       "chan-1",
		TenantID: "tenant-1",
		ChatID:   "@testchan",
		BotToken: "bot-token",
	}
}

type executorDeps struct {
	channels  *fakeChannelRepo
	rules     *fakeRuleRepo
	history   *fakeHistoryRepo
	credits   *fakeCredits
	text      *fakeTextGen
	image     *fakeImageGen
	fetcher   *fakeFetcher
	publisher *fakePublisher
}

func defaultDeps() *executorDeps {
	return &executorDeps{
		channels: &fakeChannelRepo{
			getByID: func(_ context.Context, _, _ string) (*domain.Channel, error) {
				return testChannel(), nil
			},
		},
		rules:   &fakeRuleRepo{},
		history: &fakeHistoryRepo{},
		credits: &fakeCredits{balance: 5},
		text: &fakeTextGen{
			generate: func(_ context.Context, _ string) (string, error) {
				return generatedText, nil
			},
		},
		image: &fakeImageGen{
			generate: func(_ context.Context, _ string) (string, error) {
				return "https://img.example/1.png", nil
			},
		},
		fetcher:   &fakeFetcher{},
		publisher: &fakePublisher{result: domain.PublishResult{Success: true, DeliveryID: "42"}},
	}
}

func newExecutor(d *executorDeps) *scheduler.AutopostExecutor {
	return scheduler.NewAutopostExecutor(
		d.channels, d.rules, d.history, d.credits,
		d.text, d.image, d.fetcher, d.publisher,
		testLogger,
	)
}

// ---- Execute ----

func TestExecute_TextOnlySuccess_DebitsOneCredit(t *testing.T) {
	deps := defaultDeps()
	var saved *domain.AutopostingRule
	deps.rules.saveRunState = func(_ context.Context, r *domain.AutopostingRule) error {
		saved = r
		return nil
	}

	rule := activeRule()
	before := time.Now()

	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome not successful: %+v", outcome)
	}
	if outcome.DeliveryID != "42" {
		t.Errorf("delivery id = %q, want %q", outcome.DeliveryID, "42")
	}

	if len(deps.credits.debits) != 1 || deps.credits.debits[0] != 1 {
		t.Errorf("debits = %v, want [1]", deps.credits.debits)
	}
	if len(deps.publisher.published) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(deps.publisher.published))
	}
	if deps.publisher.published[0].ImageURL != "" {
		t.Errorf("image url = %q, want empty for text-only rule", deps.publisher.published[0].ImageURL)
	}

	if len(deps.history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(deps.history.entries))
	}
	if deps.history.entries[0].Status != domain.HistorySuccess {
		t.Errorf("history status = %q, want success", deps.history.entries[0].Status)
	}

	if rule.LastPublished == nil || rule.LastPublished.Before(before) {
		t.Error("last published was not set to the run time")
	}
	if rule.Recurrence.NextScheduled == nil || !rule.Recurrence.NextScheduled.After(before) {
		t.Error("next scheduled was not advanced into the future")
	}
	if saved == nil {
		t.Error("run state was not persisted")
	}
}

func TestExecute_InsufficientCredits_FailsWithoutDebit(t *testing.T) {
	deps := defaultDeps()
	deps.credits.balance = 0

	rule := activeRule()
	before := time.Now()

	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success {
		t.Fatal("outcome reported success with zero balance")
	}
	if !strings.Contains(outcome.Err, "not enough AI credits") {
		t.Errorf("outcome error = %q, want credit message", outcome.Err)
	}

	if len(deps.credits.debits) != 0 {
		t.Errorf("debits = %v, want none", deps.credits.debits)
	}
	if len(deps.publisher.published) != 0 {
		t.Error("publish was attempted despite missing credits")
	}

	if len(deps.history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(deps.history.entries))
	}
	entry := deps.history.entries[0]
	if entry.Status != domain.HistoryFailed {
		t.Errorf("history status = %q, want failed", entry.Status)
	}
	if entry.Error == nil || !strings.Contains(*entry.Error, "not enough AI credits") {
		t.Errorf("history error = %v, want credit message", entry.Error)
	}

	// The failed run still advances the schedule so the rule retries
	// at its next natural slot instead of hot-looping.
	if rule.Recurrence.NextScheduled == nil || !rule.Recurrence.NextScheduled.After(before) {
		t.Error("next scheduled was not advanced after a failed run")
	}
	if rule.LastPublished != nil {
		t.Error("last published was set on a failed run")
	}
}

func TestExecute_GenerationError_RecordsFailedRun(t *testing.T) {
	deps := defaultDeps()
	deps.text.generate = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("model overloaded")
	}

	rule := activeRule()
	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success {
		t.Fatal("outcome reported success after generation failure")
	}
	if !strings.Contains(outcome.Err, "model overloaded") {
		t.Errorf("outcome error = %q, want generation failure", outcome.Err)
	}
	if len(deps.credits.debits) != 0 {
		t.Errorf("debits = %v, want none before the publish stage", deps.credits.debits)
	}
	if rule.Recurrence.NextScheduled == nil {
		t.Error("next scheduled was not advanced after a failed run")
	}
}

func TestExecute_ImageFailure_RefundsImagePortionAndPublishesTextOnly(t *testing.T) {
	deps := defaultDeps()
	deps.credits.balance = 10
	deps.image.generate = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("image backend down")
	}

	rule := activeRule()
	rule.ImageGeneration = true

	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome not successful: %+v", outcome)
	}

	if len(deps.credits.refunds) != 1 || deps.credits.refunds[0] != 2 {
		t.Errorf("refunds = %v, want [2]", deps.credits.refunds)
	}
	if len(deps.credits.debits) != 1 || deps.credits.debits[0] != 3 {
		t.Errorf("debits = %v, want [3] (full image-rule cost)", deps.credits.debits)
	}
	if deps.publisher.published[0].ImageURL != "" {
		t.Errorf("image url = %q, want empty after image failure", deps.publisher.published[0].ImageURL)
	}
}

func TestExecute_DuplicateContent_RegeneratesOnce(t *testing.T) {
	deps := defaultDeps()

	const freshText = "Completely different subject matter covering database indexing query planning vacuum statistics partitioning replication logical decoding"
	var calls int
	var secondPrompt string
	deps.text.generate = func(_ context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return generatedText, nil
		}
		secondPrompt = prompt
		return freshText, nil
	}

	rule := activeRule()
	rule.AvoidDuplication = true
	rule.ContentHistory = []string{dupcheck.Summarize(generatedText)}

	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("generator calls = %d, want 2 (original + one regeneration)", calls)
	}
	if !strings.Contains(secondPrompt, "Do not repeat it") {
		t.Errorf("regeneration prompt missing anti-duplication instruction: %q", secondPrompt)
	}
	if outcome.Content != freshText {
		t.Errorf("published content = %q, want the regenerated text", outcome.Content)
	}

	// The accepted content's fingerprint joins the history.
	found := false
	for _, h := range rule.ContentHistory {
		if h == dupcheck.Summarize(freshText) {
			found = true
		}
	}
	if !found {
		t.Error("regenerated content fingerprint missing from history")
	}
}

func TestExecute_RegenerationFails_KeepsOriginalContent(t *testing.T) {
	deps := defaultDeps()

	var calls int
	deps.text.generate = func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return generatedText, nil
		}
		return "", errors.New("model overloaded")
	}

	rule := activeRule()
	rule.AvoidDuplication = true
	rule.ContentHistory = []string{dupcheck.Summarize(generatedText)}

	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome not successful: %+v", outcome)
	}
	if outcome.Content != generatedText {
		t.Errorf("published content = %q, want the original despite failed regeneration", outcome.Content)
	}
}

func TestExecute_InactiveRule_RejectedWithoutSideEffects(t *testing.T) {
	deps := defaultDeps()
	var persisted bool
	deps.rules.saveRunState = func(context.Context, *domain.AutopostingRule) error {
		persisted = true
		return nil
	}

	rule := activeRule()
	rule.Status = domain.RuleInactive

	_, err := newExecutor(deps).Execute(context.Background(), rule)
	if !errors.Is(err, domain.ErrRuleInactive) {
		t.Fatalf("err = %v, want ErrRuleInactive", err)
	}

	if len(deps.history.entries) != 0 {
		t.Error("history entry written for an inactive rule")
	}
	if persisted {
		t.Error("run state persisted for an inactive rule")
	}
	if rule.Recurrence.NextScheduled != nil {
		t.Error("next scheduled advanced for an inactive rule")
	}
}

func TestExecute_PublishFailure_RecordsFailedHistoryButStillDebits(t *testing.T) {
	deps := defaultDeps()
	deps.publisher.result = domain.PublishResult{
		Success: false,
		Error:   "Forbidden: bot was kicked from the channel chat",
	}

	rule := activeRule()
	outcome, err := newExecutor(deps).Execute(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success {
		t.Fatal("outcome reported success for a failed publish")
	}
	if outcome.Err != "Forbidden: bot was kicked from the channel chat" {
		t.Errorf("outcome error = %q, want the gateway message verbatim", outcome.Err)
	}

	// Generation happened, so the credits are spent even though the
	// delivery failed.
	if len(deps.credits.debits) != 1 {
		t.Errorf("debits = %v, want one debit", deps.credits.debits)
	}

	if len(deps.history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(deps.history.entries))
	}
	entry := deps.history.entries[0]
	if entry.Status != domain.HistoryFailed {
		t.Errorf("history status = %q, want failed", entry.Status)
	}
	if entry.Error == nil || *entry.Error != "Forbidden: bot was kicked from the channel chat" {
		t.Errorf("history error = %v, want the gateway message verbatim", entry.Error)
	}
}
