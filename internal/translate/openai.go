package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

const DefaultOpenAIModel = "gpt-4o-mini"

type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type openAIBackend struct {
	completions chatCompletions
	model       string
}

// NewOpenAI returns a provider that translates with an OpenAI chat model.
func NewOpenAI(logger zerolog.Logger, apiKey, model string, codes []string) *LLM {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newOpenAI(logger, &client.Chat.Completions, model, codes)
}

func newOpenAI(logger zerolog.Logger, completions chatCompletions, model string, codes []string) *LLM {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newLLM(logger, "OpenAI", codes, &openAIBackend{completions: completions, model: model})
}

func (b *openAIBackend) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
