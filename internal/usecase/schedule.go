package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/repository"
	"github.com/Stepanishin/telepublisher-be/internal/scheduler"
)

var ErrScheduledDateInPast = errors.New("scheduled date must be in the future")

// PublishError carries the gateway's verbatim failure message for a
// synchronous publish-now call.
type PublishError struct {
	Message string
}

func (e *PublishError) Error() string { return e.Message }

type ScheduleUsecase struct {
	posts     repository.ScheduledPostRepository
	polls     repository.ScheduledPollRepository
	channels  repository.ChannelRepository
	publisher scheduler.Publisher
	inflight  inflightGuard
}

func NewScheduleUsecase(
	posts repository.ScheduledPostRepository,
	polls repository.ScheduledPollRepository,
	channels repository.ChannelRepository,
	publisher scheduler.Publisher,
	inflight inflightGuard,
) *ScheduleUsecase {
	return &ScheduleUsecase{
		posts:     posts,
		polls:     polls,
		channels:  channels,
		publisher: publisher,
		inflight:  inflight,
	}
}

type CreatePostInput struct {
	TenantID      string
	ChannelID     string
	Text          string
	ImageURLs     []string
	Buttons       []domain.Button
	ImagePosition domain.ImagePosition
	ScheduledDate time.Time
}

func (u *ScheduleUsecase) CreatePost(ctx context.Context, input CreatePostInput) (*domain.ScheduledPost, error) {
	if !input.ScheduledDate.After(time.Now()) {
		return nil, ErrScheduledDateInPast
	}
	if _, err := u.channels.GetByID(ctx, input.ChannelID, input.TenantID); err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}
	if input.ImagePosition == "" {
		input.ImagePosition = domain.ImageTop
	}

	p := &domain.ScheduledPost{
		TenantID:      input.TenantID,
		ChannelID:     input.ChannelID,
		Text:          input.Text,
		ImageURLs:     input.ImageURLs,
		Buttons:       input.Buttons,
		ImagePosition: input.ImagePosition,
		ScheduledDate: input.ScheduledDate,
	}
	created, err := u.posts.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create scheduled post: %w", err)
	}
	return created, nil
}

func (u *ScheduleUsecase) GetPost(ctx context.Context, id, tenantID string) (*domain.ScheduledPost, error) {
	p, err := u.posts.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get scheduled post: %w", err)
	}
	return p, nil
}

func (u *ScheduleUsecase) ListPosts(ctx context.Context, tenantID string) ([]*domain.ScheduledPost, error) {
	posts, err := u.posts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	return posts, nil
}

func (u *ScheduleUsecase) CancelPost(ctx context.Context, id, tenantID string) error {
	if err := u.posts.Delete(ctx, id, tenantID); err != nil {
		return fmt.Errorf("cancel scheduled post: %w", err)
	}
	return nil
}

// PublishPostNow publishes a scheduled post immediately, ahead of its
// slot. It holds the same in-flight guard the dispatcher uses, so a
// manual publish racing a due tick resolves to exactly one send. On
// success the record is deleted; on failure it stays scheduled and the
// gateway's message is surfaced to the caller.
func (u *ScheduleUsecase) PublishPostNow(ctx context.Context, id, tenantID string) (string, error) {
	post, err := u.posts.GetByID(ctx, id, tenantID)
	if err != nil {
		return "", fmt.Errorf("get scheduled post: %w", err)
	}

	if !u.inflight.TryAcquire(post.ID) {
		return "", domain.ErrAlreadyInFlight
	}
	defer u.inflight.Release(post.ID)

	channel, err := u.channels.GetByID(ctx, post.ChannelID, post.TenantID)
	if err != nil {
		return "", fmt.Errorf("resolve channel: %w", err)
	}

	imageURL := ""
	if len(post.ImageURLs) > 0 {
		imageURL = post.ImageURLs[0]
	}

	result := u.publisher.Publish(ctx, domain.PublishInput{
		BotToken:      channel.BotToken,
		ChatID:        channel.ChatID,
		Text:          post.Text,
		ImageURL:      imageURL,
		Buttons:       post.Buttons,
		ImagePosition: post.ImagePosition,
	})
	if !result.Success {
		return "", &PublishError{Message: result.Error}
	}

	if err := u.posts.Delete(ctx, post.ID, post.TenantID); err != nil {
		return result.DeliveryID, fmt.Errorf("delete published post: %w", err)
	}
	return result.DeliveryID, nil
}

type CreatePollInput struct {
	TenantID      string
	ChannelID     string
	Question      string
	Options       []string
	IsAnonymous   bool
	ScheduledDate time.Time
}

var ErrTooFewPollOptions = errors.New("a poll needs at least two options")

func (u *ScheduleUsecase) CreatePoll(ctx context.Context, input CreatePollInput) (*domain.ScheduledPoll, error) {
	if !input.ScheduledDate.After(time.Now()) {
		return nil, ErrScheduledDateInPast
	}
	if len(input.Options) < 2 {
		return nil, ErrTooFewPollOptions
	}
	if _, err := u.channels.GetByID(ctx, input.ChannelID, input.TenantID); err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}

	p := &domain.ScheduledPoll{
		TenantID:      input.TenantID,
		ChannelID:     input.ChannelID,
		Question:      input.Question,
		Options:       input.Options,
		IsAnonymous:   input.IsAnonymous,
		ScheduledDate: input.ScheduledDate,
	}
	created, err := u.polls.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create scheduled poll: %w", err)
	}
	return created, nil
}

func (u *ScheduleUsecase) GetPoll(ctx context.Context, id, tenantID string) (*domain.ScheduledPoll, error) {
	p, err := u.polls.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get scheduled poll: %w", err)
	}
	return p, nil
}

func (u *ScheduleUsecase) ListPolls(ctx context.Context, tenantID string) ([]*domain.ScheduledPoll, error) {
	polls, err := u.polls.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled polls: %w", err)
	}
	return polls, nil
}

func (u *ScheduleUsecase) CancelPoll(ctx context.Context, id, tenantID string) error {
	if err := u.polls.Delete(ctx, id, tenantID); err != nil {
		return fmt.Errorf("cancel scheduled poll: %w", err)
	}
	return nil
}

// PublishPollNow mirrors PublishPostNow for polls.
func (u *ScheduleUsecase) PublishPollNow(ctx context.Context, id, tenantID string) (string, error) {
	poll, err := u.polls.GetByID(ctx, id, tenantID)
	if err != nil {
		return "", fmt.Errorf("get scheduled poll: %w", err)
	}

	if !u.inflight.TryAcquire(poll.ID) {
		return "", domain.ErrAlreadyInFlight
	}
	defer u.inflight.Release(poll.ID)

	channel, err := u.channels.GetByID(ctx, poll.ChannelID, poll.TenantID)
	if err != nil {
		return "", fmt.Errorf("resolve channel: %w", err)
	}

	result := u.publisher.PublishPoll(ctx, domain.PollInput{
		BotToken:    channel.BotToken,
		ChatID:      channel.ChatID,
		Question:    poll.Question,
		Options:     poll.Options,
		IsAnonymous: poll.IsAnonymous,
	})
	if !result.Success {
		return "", &PublishError{Message: result.Error}
	}

	if err := u.polls.Delete(ctx, poll.ID, poll.TenantID); err != nil {
		return result.DeliveryID, fmt.Errorf("delete published poll: %w", err)
	}
	return result.DeliveryID, nil
}
