package translate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiBackend struct {
	models geminiModels
	model  string
}

// NewGemini returns a provider that translates with a Gemini model.
func NewGemini(ctx context.Context, logger zerolog.Logger, apiKey, model string, codes []string) (*LLM, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(logger, client.Models, model, codes), nil
}

func newGemini(logger zerolog.Logger, models geminiModels, model string, codes []string) *LLM {
	if model == "" {
		model = DefaultGeminiModel
	}
	return newLLM(logger, "Gemini", codes, &geminiBackend{models: models, model: model})
}

func (b *geminiBackend) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return resp.Text(), nil
}
