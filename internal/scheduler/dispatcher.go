package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/metrics"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
)

// batchLimit bounds how many due items of each kind one tick considers.
const batchLimit = 100

// Dispatcher is the cron-driven loop: every interval it discovers due
// scheduled posts, polls, and autoposting rules across all tenants and
// pushes each through the in-flight guard and the matching executor.
// Items are processed one at a time; a tick runs to completion before
// the next one starts, so an overrun only delays the next tick.
type Dispatcher struct {
	posts     repository.ScheduledPostRepository
	polls     repository.ScheduledPollRepository
	rules     repository.RuleRepository
	channels  repository.ChannelRepository
	executor  *AutopostExecutor
	publisher Publisher
	inflight  *InFlight
	logger    *slog.Logger
	interval  time.Duration
}

func NewDispatcher(
	posts repository.ScheduledPostRepository,
	polls repository.ScheduledPollRepository,
	rules repository.RuleRepository,
	channels repository.ChannelRepository,
	executor *AutopostExecutor,
	publisher Publisher,
	inflight *InFlight,
	logger *slog.Logger,
	interval time.Duration,
) *Dispatcher {
	return &Dispatcher{
		posts:     posts,
		polls:     polls,
		rules:     rules,
		channels:  channels,
		executor:  executor,
		publisher: publisher,
		inflight:  inflight,
		logger:    logger.With("component", "dispatcher"),
		interval:  interval,
	}
}

// InFlightGuard exposes the guard so the manual publish-now and
// execute-now paths consult the same set the cron path uses.
func (d *Dispatcher) InFlightGuard() *InFlight {
	return d.inflight
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", "interval", d.interval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher shut down")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one full dispatch cycle. Exported so the manual trigger of
// a cycle (and tests) can drive it without the ticker.
func (d *Dispatcher) Tick(ctx context.Context) {
	start := time.Now()

	items := d.collectDue(ctx)
	for _, item := range items {
		d.dispatch(ctx, item)
	}

	metrics.DispatchCycleDuration.Observe(time.Since(start).Seconds())
	if len(items) > 0 {
		d.logger.Info("dispatch cycle finished", "items", len(items), "duration", time.Since(start))
	}
}

// collectDue queries the three kinds of due work independently; a failed
// query loses only its own kind for this tick.
func (d *Dispatcher) collectDue(ctx context.Context) []domain.DueItem {
	now := time.Now()
	var items []domain.DueItem

	posts, err := d.posts.FindDue(ctx, now, batchLimit)
	if err != nil {
		d.logger.Error("find due posts", "error", err)
	}
	for _, p := range posts {
		items = append(items, domain.DueItem{Kind: domain.DuePost, Post: p})
	}

	polls, err := d.polls.FindDue(ctx, now, batchLimit)
	if err != nil {
		d.logger.Error("find due polls", "error", err)
	}
	for _, p := range polls {
		items = append(items, domain.DueItem{Kind: domain.DuePoll, Poll: p})
	}

	rules, err := d.rules.FindDue(ctx, now, batchLimit)
	if err != nil {
		d.logger.Error("find due rules", "error", err)
	}
	for _, r := range rules {
		items = append(items, domain.DueItem{Kind: domain.DueRule, Rule: r})
	}

	return items
}

// dispatch handles one due item. Isolation is per item: a panic or error
// here must never abort the rest of the tick.
func (d *Dispatcher) dispatch(ctx context.Context, item domain.DueItem) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while dispatching item", "kind", item.Kind, "panic", r)
			metrics.ItemsDispatchedTotal.WithLabelValues(string(item.Kind), "error").Inc()
		}
	}()

	switch item.Kind {
	case domain.DuePost:
		d.processPost(ctx, item.Post.ID)
	case domain.DuePoll:
		d.processPoll(ctx, item.Poll.ID)
	case domain.DueRule:
		d.processRule(ctx, item.Rule)
	}
}

// processPost publishes one due scheduled post. The item is re-fetched
// by id first: a manual publish-now may have deleted it between the due
// scan and now. Success deletes the record — deletion is the completion
// marker. Failure leaves the record untouched so the next tick retries
// it; there is no backoff or retry ceiling.
func (d *Dispatcher) processPost(ctx context.Context, id string) {
	post, err := d.posts.Get(ctx, id)
	if err != nil {
		// Gone already — someone published or cancelled it. Not an error.
		return
	}

	if !d.inflight.TryAcquire(post.ID) {
		metrics.ItemsDispatchedTotal.WithLabelValues("post", "skipped").Inc()
		return
	}
	defer d.inflight.Release(post.ID)

	channel, err := d.channels.GetByID(ctx, post.ChannelID, post.TenantID)
	if err != nil {
		d.logger.Error("resolve channel for post", "post_id", post.ID, "error", err)
		metrics.ItemsDispatchedTotal.WithLabelValues("post", "failed").Inc()
		return
	}

	imageURL := ""
	if len(post.ImageURLs) > 0 {
		imageURL = post.ImageURLs[0]
	}

	result := d.publisher.Publish(ctx, domain.PublishInput{
		BotToken:      channel.BotToken,
		ChatID:        channel.ChatID,
		Text:          post.Text,
		ImageURL:      imageURL,
		Buttons:       post.Buttons,
		ImagePosition: post.ImagePosition,
	})
	if !result.Success {
		d.logger.Warn("scheduled post publish failed, will retry next tick",
			"post_id", post.ID, "error", result.Error)
		metrics.ItemsDispatchedTotal.WithLabelValues("post", "failed").Inc()
		return
	}

	if err := d.posts.Delete(ctx, post.ID, post.TenantID); err != nil {
		d.logger.Error("delete published post", "post_id", post.ID, "error", err)
	}
	metrics.ItemsDispatchedTotal.WithLabelValues("post", "published").Inc()
	d.logger.Info("scheduled post published", "post_id", post.ID, "delivery_id", result.DeliveryID)
}

func (d *Dispatcher) processPoll(ctx context.Context, id string) {
	poll, err := d.polls.Get(ctx, id)
	if err != nil {
		return
	}

	if !d.inflight.TryAcquire(poll.ID) {
		metrics.ItemsDispatchedTotal.WithLabelValues("poll", "skipped").Inc()
		return
	}
	defer d.inflight.Release(poll.ID)

	channel, err := d.channels.GetByID(ctx, poll.ChannelID, poll.TenantID)
	if err != nil {
		d.logger.Error("resolve channel for poll", "poll_id", poll.ID, "error", err)
		metrics.ItemsDispatchedTotal.WithLabelValues("poll", "failed").Inc()
		return
	}

	result := d.publisher.PublishPoll(ctx, domain.PollInput{
		BotToken:    channel.BotToken,
		ChatID:      channel.ChatID,
		Question:    poll.Question,
		Options:     poll.Options,
		IsAnonymous: poll.IsAnonymous,
	})
	if !result.Success {
		d.logger.Warn("scheduled poll publish failed, will retry next tick",
			"poll_id", poll.ID, "error", result.Error)
		metrics.ItemsDispatchedTotal.WithLabelValues("poll", "failed").Inc()
		return
	}

	if err := d.polls.Delete(ctx, poll.ID, poll.TenantID); err != nil {
		d.logger.Error("delete published poll", "poll_id", poll.ID, "error", err)
	}
	metrics.ItemsDispatchedTotal.WithLabelValues("poll", "published").Inc()
	d.logger.Info("scheduled poll published", "poll_id", poll.ID, "delivery_id", result.DeliveryID)
}

func (d *Dispatcher) processRule(ctx context.Context, rule *domain.AutopostingRule) {
	if !d.inflight.TryAcquire(rule.ID) {
		metrics.ItemsDispatchedTotal.WithLabelValues("rule", "skipped").Inc()
		return
	}
	defer d.inflight.Release(rule.ID)

	outcome, err := d.executor.Execute(ctx, rule)
	if err != nil {
		// Only the inactive-rule precondition reaches here; due scans
		// filter on status, so this means the rule flipped mid-tick.
		d.logger.Info("skipping rule", "rule_id", rule.ID, "reason", err)
		metrics.ItemsDispatchedTotal.WithLabelValues("rule", "skipped").Inc()
		return
	}

	if outcome.Success {
		metrics.ItemsDispatchedTotal.WithLabelValues("rule", "published").Inc()
		d.logger.Info("autoposting rule executed", "rule_id", rule.ID, "delivery_id", outcome.DeliveryID)
	} else {
		metrics.ItemsDispatchedTotal.WithLabelValues("rule", "failed").Inc()
	}
}
