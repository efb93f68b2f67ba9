package domain

// PublishInput carries everything the messaging gateway needs to deliver
// one post into a channel.
type PublishInput struct {
	BotToken      string
	ChatID        string
	Text          string
	ImageURL      string // empty means text-only
	Buttons       []Button
	ImagePosition ImagePosition
}

type PollInput struct {
	BotToken    string
	ChatID      string
	Question    string
	Options     []string
	IsAnonymous bool
}

// PublishResult is recorded verbatim into history entries: the gateway's
// error text is never rewritten on the way in.
type PublishResult struct {
	Success    bool
	DeliveryID string
	Error      string
}

// SourceContent is one scraped page used to prime content generation.
type SourceContent struct {
	URL         string
	Title       string
	Description string
	Content     string
	Author      string
	PublishDate string
}
