package domain

import (
	"errors"
	"time"
)

var (
	ErrRuleNotFound      = errors.New("autoposting rule not found")
	ErrRuleInactive      = errors.New("autoposting rule is inactive")
	ErrInvalidRecurrence = errors.New("invalid recurrence settings")
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

type TimeUnit string

const (
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
)

type RuleStatus string

const (
	RuleActive   RuleStatus = "active"
	RuleInactive RuleStatus = "inactive"
)

// Recurrence describes when a rule fires next. NextScheduled is the only
// field the calculator mutates; once set it is always strictly in the
// future relative to the computation time that produced it.
type Recurrence struct {
	Frequency      Frequency
	CustomInterval int      // required iff Frequency == custom
	CustomTimeUnit TimeUnit // required iff Frequency == custom
	PreferredTime  string   // "HH:MM" local time, used by daily/weekly
	PreferredDays  []string // weekday names, used by weekly
	NextScheduled  *time.Time
}

// AutopostingRule is a recurring content-generation job for one channel.
// Executions mutate NextScheduled, LastPublished, and ContentHistory;
// Status is only changed by tenant action.
type AutopostingRule struct {
	ID        string
	TenantID  string
	ChannelID string

	Topic      string
	Keywords   []string
	SourceURLs []string

	ImageGeneration  bool
	AvoidDuplication bool
	CheckDays        int // duplication lookback window in days

	Recurrence Recurrence
	Status     RuleStatus

	// ContentHistory holds token fingerprints of published content,
	// bounded by dupcheck.TrimHistory. It is not the audit history.
	ContentHistory []string
	LastPublished  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "success"
	HistoryFailed  HistoryStatus = "failed"
)

// HistoryEntry is the append-only audit record of one execution attempt.
type HistoryEntry struct {
	ID         string
	RuleID     string
	TenantID   string
	Content    string
	ImageURL   *string
	Status     HistoryStatus
	DeliveryID *string
	Error      *string
	CreatedAt  time.Time
}
