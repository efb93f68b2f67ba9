package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/dupcheck"
	"github.com/Stepanishin/telepublisher-be/internal/recurrence"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
)

const (
	textCreditCost  = 1
	imageCreditCost = 2
)

// Collaborator contracts, defined at point of use so tests can inject
// closure-backed fakes.

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type SourceFetcher interface {
	Fetch(ctx context.Context, urls []string) ([]domain.SourceContent, error)
}

type Publisher interface {
	Publish(ctx context.Context, in domain.PublishInput) domain.PublishResult
	PublishPoll(ctx context.Context, in domain.PollInput) domain.PublishResult
}

type CreditService interface {
	Balance(ctx context.Context, tenantID string) (int, error)
	Debit(ctx context.Context, tenantID string, amount int) (int, error)
	Credit(ctx context.Context, tenantID string, amount int) (int, error)
}

// Outcome is what one rule execution produced.
type Outcome struct {
	Success    bool
	DeliveryID string
	Content    string
	Err        string
}

// AutopostExecutor runs one autoposting rule end to end: credit check,
// content synthesis, duplication check, optional image, publish, and
// the bookkeeping that follows. Whatever happens, a finished run always
// advances the rule's next scheduled time — a broken rule self-throttles
// to its normal cadence instead of hot-looping.
type AutopostExecutor struct {
	channels  repository.ChannelRepository
	rules     repository.RuleRepository
	history   repository.HistoryRepository
	credits   CreditService
	text      TextGenerator
	image     ImageGenerator
	sources   SourceFetcher
	publisher Publisher
	logger    *slog.Logger
}

func NewAutopostExecutor(
	channels repository.ChannelRepository,
	rules repository.RuleRepository,
	history repository.HistoryRepository,
	credits CreditService,
	text TextGenerator,
	image ImageGenerator,
	sources SourceFetcher,
	publisher Publisher,
	logger *slog.Logger,
) *AutopostExecutor {
	return &AutopostExecutor{
		channels:  channels,
		rules:     rules,
		history:   history,
		credits:   credits,
		text:      text,
		image:     image,
		sources:   sources,
		publisher: publisher,
		logger:    logger.With("component", "autopost_executor"),
	}
}

// Execute runs one rule. An inactive rule is rejected up front with no
// history entry and no reschedule; that path exists for the manual
// execute-now API — the cron path never fetches inactive rules.
func (e *AutopostExecutor) Execute(ctx context.Context, rule *domain.AutopostingRule) (Outcome, error) {
	if rule.Status != domain.RuleActive {
		return Outcome{}, domain.ErrRuleInactive
	}

	cost := textCreditCost
	if rule.ImageGeneration {
		cost += imageCreditCost
	}

	balance, err := e.credits.Balance(ctx, rule.TenantID)
	if err != nil {
		return e.failRun(ctx, rule, fmt.Sprintf("check credit balance: %v", err))
	}
	if balance < cost {
		// Terminal for this cycle; retried at the next natural due time.
		return e.failRun(ctx, rule, domain.ErrInsufficientCredits.Error())
	}

	outcome, err := e.run(ctx, rule, cost)
	if err != nil {
		return e.failRun(ctx, rule, err.Error())
	}
	return outcome, nil
}

// run covers context assembly through post-publish bookkeeping. Any
// returned error is recorded by the caller's per-rule boundary.
func (e *AutopostExecutor) run(ctx context.Context, rule *domain.AutopostingRule, cost int) (Outcome, error) {
	var sources []domain.SourceContent
	if len(rule.SourceURLs) > 0 {
		fetched, err := e.sources.Fetch(ctx, rule.SourceURLs)
		if err != nil {
			// Non-fatal: generate from the topic alone.
			e.logger.Warn("source fetch failed, continuing without context",
				"rule_id", rule.ID, "error", err)
		}
		sources = fetched
	}

	prompt := buildPrompt(rule, sources)

	content, err := e.text.GenerateText(ctx, prompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("generate text: %w", err)
	}

	if rule.AvoidDuplication {
		check := dupcheck.Check(content, rule.ContentHistory, dupcheck.DefaultThreshold)
		if check.IsSimilar {
			e.logger.Info("content flagged as duplicate, regenerating once",
				"rule_id", rule.ID, "similarity", check.Similarity)
			regenerated, rerr := e.text.GenerateText(ctx, dupcheck.RegenerationPrompt(prompt, content))
			if rerr != nil {
				// Keep the flagged text rather than fail the run.
				e.logger.Warn("regeneration failed, keeping original content",
					"rule_id", rule.ID, "error", rerr)
			} else {
				content = regenerated
			}
		}
	}

	imageURL := ""
	if rule.ImageGeneration {
		url, ierr := e.image.GenerateImage(ctx, imagePrompt(rule.Topic))
		if ierr != nil {
			// Continue text-only and refund the image portion, leaving
			// the effective cost of this run at the text price.
			e.logger.Warn("image generation failed, publishing text-only",
				"rule_id", rule.ID, "error", ierr)
			if _, cerr := e.credits.Credit(ctx, rule.TenantID, imageCreditCost); cerr != nil {
				e.logger.Error("refund image credits", "rule_id", rule.ID, "error", cerr)
			}
		} else {
			imageURL = url
		}
	}

	channel, err := e.channels.GetByID(ctx, rule.ChannelID, rule.TenantID)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve channel: %w", err)
	}

	result := e.publisher.Publish(ctx, domain.PublishInput{
		BotToken:      channel.BotToken,
		ChatID:        channel.ChatID,
		Text:          content,
		ImageURL:      imageURL,
		ImagePosition: domain.ImageTop,
	})

	if rule.AvoidDuplication && result.Success {
		rule.ContentHistory = dupcheck.TrimHistory(
			append(rule.ContentHistory, dupcheck.Summarize(content)),
			rule.CheckDays,
		)
	}

	if _, err := e.credits.Debit(ctx, rule.TenantID, cost); err != nil {
		e.logger.Error("debit credits", "rule_id", rule.ID, "amount", cost, "error", err)
	}

	now := time.Now()
	rule.LastPublished = &now
	e.reschedule(rule, now)

	status := domain.HistorySuccess
	var errMsg *string
	if !result.Success {
		status = domain.HistoryFailed
		msg := result.Error
		errMsg = &msg
	}
	var deliveryID *string
	if result.DeliveryID != "" {
		deliveryID = &result.DeliveryID
	}
	var image *string
	if imageURL != "" {
		image = &imageURL
	}
	e.appendHistory(ctx, &domain.HistoryEntry{
		RuleID:     rule.ID,
		TenantID:   rule.TenantID,
		Content:    content,
		ImageURL:   image,
		Status:     status,
		DeliveryID: deliveryID,
		Error:      errMsg,
	})
	e.persistRun(ctx, rule)

	return Outcome{
		Success:    result.Success,
		DeliveryID: result.DeliveryID,
		Content:    content,
		Err:        result.Error,
	}, nil
}

// failRun is the per-rule failure boundary: record a failed history
// entry, advance the schedule so the rule is never stuck, persist, and
// report the failure without aborting the batch.
func (e *AutopostExecutor) failRun(ctx context.Context, rule *domain.AutopostingRule, msg string) (Outcome, error) {
	e.logger.Warn("autoposting run failed", "rule_id", rule.ID, "error", msg)

	e.reschedule(rule, time.Now())
	e.appendHistory(ctx, &domain.HistoryEntry{
		RuleID:   rule.ID,
		TenantID: rule.TenantID,
		Status:   domain.HistoryFailed,
		Error:    &msg,
	})
	e.persistRun(ctx, rule)

	return Outcome{Err: msg}, nil
}

func (e *AutopostExecutor) reschedule(rule *domain.AutopostingRule, now time.Time) {
	next := recurrence.Next(rule.Recurrence, now)
	rule.Recurrence.NextScheduled = &next
}

func (e *AutopostExecutor) appendHistory(ctx context.Context, entry *domain.HistoryEntry) {
	if err := e.history.Append(ctx, entry); err != nil {
		e.logger.Error("append history entry", "rule_id", entry.RuleID, "error", err)
	}
}

func (e *AutopostExecutor) persistRun(ctx context.Context, rule *domain.AutopostingRule) {
	if err := e.rules.SaveRunState(ctx, rule); err != nil {
		e.logger.Error("persist rule run state", "rule_id", rule.ID, "error", err)
	}
}

// buildPrompt assembles the generation prompt. With scraped context the
// prompt is primed on the source material; otherwise it is a plain
// topic prompt.
func buildPrompt(rule *domain.AutopostingRule, sources []domain.SourceContent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write an engaging Telegram channel post about: %s.", rule.Topic)
	if len(rule.Keywords) > 0 {
		fmt.Fprintf(&b, " Work in these keywords naturally: %s.", strings.Join(rule.Keywords, ", "))
	}

	if len(sources) > 0 {
		b.WriteString("\n\nBase the post on this source material:\n")
		for i, src := range sources {
			fmt.Fprintf(&b, "\n[%d] %s", i+1, src.Title)
			if src.Description != "" {
				fmt.Fprintf(&b, "\n%s", src.Description)
			}
			if src.Content != "" {
				excerpt := src.Content
				if len(excerpt) > 1500 {
					excerpt = excerpt[:1500]
				}
				fmt.Fprintf(&b, "\n%s", excerpt)
			}
			b.WriteString("\n")
		}
		b.WriteString("\nSummarize and add your own take; do not copy sentences verbatim.")
	}

	b.WriteString("\n\nKeep it under 900 characters, no hashtags, no markdown headers.")
	return b.String()
}

func imagePrompt(topic string) string {
	return fmt.Sprintf(
		"A clean, modern illustration for a social media post about: %s. No text in the image.",
		sanitizeASCII(topic),
	)
}

// sanitizeASCII strips non-ASCII runes; the image backend rejects some
// non-Latin prompts.
func sanitizeASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
