package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/revrost/go-openrouter"
	"github.com/rs/zerolog"
)

const DefaultOpenRouterModel = "google/gemini-2.0-flash-001"

type openRouterClient interface {
	CreateChatCompletion(ctx context.Context, req openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
}

type openRouterBackend struct {
	client openRouterClient
	model  string
}

// NewOpenRouter returns a provider that translates with an OpenRouter model.
func NewOpenRouter(logger zerolog.Logger, apiKey, model string, codes []string) *LLM {
	client := openrouter.NewClient(apiKey, openrouter.WithXTitle("server-babel"))
	return newOpenRouter(logger, client, model, codes)
}

func newOpenRouter(logger zerolog.Logger, client openRouterClient, model string, codes []string) *LLM {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return newLLM(logger, "OpenRouter", codes, &openRouterBackend{client: client, model: model})
}

func (b *openRouterBackend) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model: b.model,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: system}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: prompt}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openrouter API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}
	return resp.Choices[0].Message.Content.Text, nil
}
