package domain

import (
	"errors"
	"time"
)

var (
	ErrPostNotFound    = errors.New("scheduled post not found")
	ErrPollNotFound    = errors.New("scheduled poll not found")
	ErrAlreadyInFlight = errors.New("item is already being published")
)

type ImagePosition string

const (
	ImageTop    ImagePosition = "top"
	ImageBottom ImagePosition = "bottom"
)

type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ScheduledPost is a one-shot work item. There is no terminal "published"
// state: the record is deleted on successful publish and left untouched
// on failure, so each tick reconsiders it until it succeeds or is
// cancelled.
type ScheduledPost struct {
	ID            string
	TenantID      string
	ChannelID     string
	Text          string
	ImageURLs     []string
	Buttons       []Button
	ImagePosition ImagePosition
	ScheduledDate time.Time
	CreatedAt     time.Time
}

// ScheduledPoll follows the same deleted-on-success lifecycle as
// ScheduledPost.
type ScheduledPoll struct {
	ID            string
	TenantID      string
	ChannelID     string
	Question      string
	Options       []string
	IsAnonymous   bool
	ScheduledDate time.Time
	CreatedAt     time.Time
}

type DueKind string

const (
	DuePost DueKind = "post"
	DuePoll DueKind = "poll"
	DueRule DueKind = "rule"
)

// DueItem is the tagged variant the dispatcher consumes: exactly one of
// Post, Poll, Rule is non-nil, matching Kind.
type DueItem struct {
	Kind DueKind
	Post *ScheduledPost
	Poll *ScheduledPoll
	Rule *AutopostingRule
}
