package handler

const (
	errInternalServer      = "Internal server error"
	errChannelNotFound     = "Channel not found"
	errRuleNotFound        = "Autoposting rule not found"
	errRuleInactive        = "Autoposting rule is inactive"
	errInvalidRecurrence   = "Invalid recurrence settings"
	errPostNotFound        = "Scheduled post not found"
	errPollNotFound        = "Scheduled poll not found"
	errAlreadyInFlight     = "Item is already being published"
	errScheduledDateInPast = "Scheduled date must be in the future"
	errTooFewPollOptions   = "A poll needs at least two options"
	errInsufficientCredits = "Not enough AI credits"
)
