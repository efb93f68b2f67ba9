// Package telegram is the publication gateway: a thin Bot API client
// that delivers posts and polls into channels. Failures are returned as
// data, not errors — the caller records the gateway's message verbatim.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/metrics"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	callTimeout    = 30 * time.Second
)

type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient() *Client {
	return NewClientWithBase(defaultBaseURL)
}

func NewClientWithBase(baseURL string) *Client {
	return &Client{
		client:  &http.Client{},
		baseURL: baseURL,
	}
}

// apiResponse is the Bot API envelope shared by every method.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]domain.Button `json:"inline_keyboard"`
}

// Publish delivers one post. With an image at the top the text rides as
// the photo caption; with an image at the bottom the text goes out
// first and the photo follows as a second message. The delivery id is
// always the text-bearing message.
func (c *Client) Publish(ctx context.Context, in domain.PublishInput) domain.PublishResult {
	if in.ImageURL == "" {
		return c.sendMessage(ctx, in)
	}

	if in.ImagePosition == domain.ImageBottom {
		result := c.sendMessage(ctx, in)
		if !result.Success {
			return result
		}
		photo := c.sendPhoto(ctx, in, "")
		if !photo.Success {
			return photo
		}
		return result
	}

	return c.sendPhoto(ctx, in, in.Text)
}

func (c *Client) PublishPoll(ctx context.Context, in domain.PollInput) domain.PublishResult {
	payload := map[string]any{
		"chat_id":      in.ChatID,
		"question":     in.Question,
		"options":      in.Options,
		"is_anonymous": in.IsAnonymous,
	}
	return c.call(ctx, in.BotToken, "sendPoll", payload)
}

func (c *Client) sendMessage(ctx context.Context, in domain.PublishInput) domain.PublishResult {
	payload := map[string]any{
		"chat_id": in.ChatID,
		"text":    in.Text,
	}
	if len(in.Buttons) > 0 {
		payload["reply_markup"] = inlineKeyboard{InlineKeyboard: buttonRows(in.Buttons)}
	}
	return c.call(ctx, in.BotToken, "sendMessage", payload)
}

func (c *Client) sendPhoto(ctx context.Context, in domain.PublishInput, caption string) domain.PublishResult {
	payload := map[string]any{
		"chat_id": in.ChatID,
		"photo":   in.ImageURL,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	if caption != "" && len(in.Buttons) > 0 {
		payload["reply_markup"] = inlineKeyboard{InlineKeyboard: buttonRows(in.Buttons)}
	}
	return c.call(ctx, in.BotToken, "sendPhoto", payload)
}

func (c *Client) call(ctx context.Context, token, method string, payload map[string]any) domain.PublishResult {
	start := time.Now()
	defer func() {
		metrics.PublishDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishResult{Error: fmt.Sprintf("marshal payload: %v", err)}
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.PublishResult{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.PublishResult{Error: fmt.Sprintf("%s: %v", method, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.PublishResult{Error: fmt.Sprintf("%s: decode response: %v", method, err)}
	}

	if !api.OK {
		desc := api.Description
		if desc == "" {
			desc = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return domain.PublishResult{Error: desc}
	}

	return domain.PublishResult{
		Success:    true,
		DeliveryID: strconv.FormatInt(api.Result.MessageID, 10),
	}
}

// buttonRows lays buttons out one per row, matching how posts are
// composed in the editor.
func buttonRows(buttons []domain.Button) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []domain.Button{b})
	}
	return rows
}
