package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-babel/internal/config"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		environ map[string]string
		check   func(t *testing.T, cfg *config.Config)
		wantErr string
	}{
		{
			name:    "defaults",
			environ: map[string]string{"DISCORD_TOKEN": "token"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "token", cfg.DiscordToken)
				assert.Equal(t, "datastore.json", cfg.StoragePath)
				assert.Equal(t, config.PublisherConcurrent, cfg.EventPublisher)
				assert.Equal(t, 45*time.Second, cfg.TempReplyTTL)
				assert.Equal(t, []string{"libretranslate", "google"}, cfg.Translate.Providers)
				assert.Equal(t, 25, cfg.Translate.CommandLimit)
				assert.True(t, cfg.InitSlashCommands)
				assert.Equal(t, "https://libretranslate.com", cfg.Libre.URL)
			},
		},
		{
			name: "overrides",
			environ: map[string]string{
				"DISCORD_TOKEN":                 "token",
				"DISCORD_GUILD_BLACKLIST":       "1,2",
				"EVENT_PUBLISHER":               "background",
				"TEMP_REPLY_TTL":                "10s",
				"TRANSLATE_PROVIDERS":           "openrouter,google",
				"TRANSLATE_PREFERRED_LANGUAGES": "en,de,ja",
				"OPENROUTER_API_KEY":            "or-key",
				"OPENROUTER_MODEL":              "openai/gpt-4.1-mini",
				"LLM_LANGUAGES":                 "en,de",
			},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.PublisherBackground, cfg.EventPublisher)
				assert.Equal(t, 10*time.Second, cfg.TempReplyTTL)
				assert.Equal(t, []string{"openrouter", "google"}, cfg.Translate.Providers)
				assert.Equal(t, []string{"en", "de", "ja"}, cfg.Translate.PreferredLanguages)
				assert.Equal(t, "or-key", cfg.OpenRouter.APIKey)
				assert.Equal(t, "openai/gpt-4.1-mini", cfg.OpenRouter.Model)
				assert.Equal(t, []string{"en", "de"}, cfg.LLM.Languages)
				assert.True(t, cfg.IsGuildBlacklisted("2"))
				assert.False(t, cfg.IsGuildBlacklisted("3"))
			},
		},
		{
			name:    "missing token",
			environ: map[string]string{},
			wantErr: "DISCORD_TOKEN",
		},
		{
			name:    "unknown publisher",
			environ: map[string]string{"DISCORD_TOKEN": "t", "EVENT_PUBLISHER": "kafka"},
			wantErr: "EVENT_PUBLISHER",
		},
		{
			name:    "non-positive ttl",
			environ: map[string]string{"DISCORD_TOKEN": "t", "TEMP_REPLY_TTL": "0s"},
			wantErr: "TEMP_REPLY_TTL",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Parse(tc.environ)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
