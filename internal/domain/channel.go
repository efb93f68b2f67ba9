package domain

import (
	"errors"
	"time"
)

var ErrChannelNotFound = errors.New("channel not found")

// Channel is a connected Telegram channel a tenant publishes into.
type Channel struct {
	ID        string
	TenantID  string
	ChatID    string // @username or numeric chat id
	Title     string
	BotToken  string
	CreatedAt time.Time
}
