// Package genai wraps the OpenAI API behind the small text/image
// generator contracts the executor consumes.
package genai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultTextModel  = openai.ChatModelGPT4oMini
	defaultImageModel = openai.ImageModelDallE3

	generationTimeout = 60 * time.Second
)

var errEmptyCompletion = errors.New("generation returned no content")

type Client struct {
	api        openai.Client
	textModel  openai.ChatModel
	imageModel openai.ImageModel
}

func NewClient(apiKey string) *Client {
	return &Client{
		api:        openai.NewClient(option.WithAPIKey(apiKey)),
		textModel:  defaultTextModel,
		imageModel: defaultImageModel,
	}
}

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.textModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	resp, err := c.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errEmptyCompletion
	}
	return resp.Data[0].URL, nil
}
