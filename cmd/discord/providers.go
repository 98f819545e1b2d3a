package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/config"
	"github.com/keshon/server-babel/internal/translate"
)

// Provider names accepted by TRANSLATE_PROVIDERS.
const (
	providerGoogle     = "google"
	providerLibre      = "libretranslate"
	providerOpenRouter = "openrouter"
	providerOpenAI     = "openai"
	providerGemini     = "gemini"
)

// buildProviders returns the providers named in cfg in fallback order.
// An unknown name is a configuration error; a model provider without an
// API key is skipped with a warning.
func buildProviders(ctx context.Context, logger zerolog.Logger, cfg *config.Config) ([]translate.Provider, error) {
	var providers []translate.Provider
	codes := cfg.LLM.Languages

	for _, name := range cfg.Translate.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case providerGoogle:
			providers = append(providers, translate.NewGoogle(logger, translate.WithGoogleURL(cfg.Google.URL)))
		case providerLibre:
			providers = append(providers, translate.NewLibre(logger, cfg.Libre.URL, cfg.Libre.APIKey))
		case providerOpenRouter:
			if !hasKey(logger, name, cfg.OpenRouter) {
				continue
			}
			providers = append(providers, translate.NewOpenRouter(logger, cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, codes))
		case providerOpenAI:
			if !hasKey(logger, name, cfg.OpenAI) {
				continue
			}
			providers = append(providers, translate.NewOpenAI(logger, cfg.OpenAI.APIKey, cfg.OpenAI.Model, codes))
		case providerGemini:
			if !hasKey(logger, name, cfg.Gemini) {
				continue
			}
			p, err := translate.NewGemini(ctx, logger, cfg.Gemini.APIKey, cfg.Gemini.Model, codes)
			if err != nil {
				return nil, fmt.Errorf("gemini: %w", err)
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown translation provider %q", name)
		}
	}
	return providers, nil
}

func hasKey(logger zerolog.Logger, name string, m config.ModelConfig) bool {
	if m.APIKey != "" {
		return true
	}
	logger.Warn().Str("provider", name).Msg("no API key configured, skipping provider")
	return false
}
