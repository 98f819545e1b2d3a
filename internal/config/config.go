package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Publisher kinds accepted by EVENT_PUBLISHER.
const (
	PublisherConcurrent = "concurrent"
	PublisherBackground = "background"
)

// Config is the bot configuration, read from the environment.
type Config struct {
	DiscordToken          string        `env:"DISCORD_TOKEN,required"`
	DiscordGuildBlacklist []string      `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool          `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	StoragePath           string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat             string        `env:"LOG_FORMAT" envDefault:"console"`
	EventPublisher        string        `env:"EVENT_PUBLISHER" envDefault:"concurrent"`
	TempReplyTTL          time.Duration `env:"TEMP_REPLY_TTL" envDefault:"45s"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Translate TranslateConfig `envPrefix:"TRANSLATE_"`
	Google    GoogleConfig    `envPrefix:"GOOGLE_TRANSLATE_"`
	Libre     LibreConfig     `envPrefix:"LIBRETRANSLATE_"`
	LLM       LLMConfig       `envPrefix:"LLM_"`

	OpenRouter ModelConfig `envPrefix:"OPENROUTER_"`
	OpenAI     ModelConfig `envPrefix:"OPENAI_"`
	Gemini     ModelConfig `envPrefix:"GEMINI_"`
}

type TranslateConfig struct {
	// Providers in fallback order.
	Providers          []string `env:"PROVIDERS" envSeparator:"," envDefault:"libretranslate,google"`
	PreferredLanguages []string `env:"PREFERRED_LANGUAGES" envSeparator:","`
	CommandLimit       int      `env:"COMMAND_LIMIT" envDefault:"25"`
}

type GoogleConfig struct {
	URL string `env:"URL" envDefault:"https://translate.googleapis.com/translate_a/single"`
}

type LibreConfig struct {
	URL    string `env:"URL" envDefault:"https://libretranslate.com"`
	APIKey string `env:"API_KEY"`
}

type LLMConfig struct {
	Languages []string `env:"LANGUAGES" envSeparator:","`
}

type ModelConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL"`
}

// Load reads .env when present and parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// Parse builds a Config from environ instead of the process environment.
func Parse(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{PublisherConcurrent, PublisherBackground}, c.EventPublisher) {
		errs = append(errs, fmt.Errorf("EVENT_PUBLISHER must be %q or %q, got %q", PublisherConcurrent, PublisherBackground, c.EventPublisher))
	}
	if c.TempReplyTTL <= 0 {
		errs = append(errs, fmt.Errorf("TEMP_REPLY_TTL must be positive, got %s", c.TempReplyTTL))
	}
	if len(c.Translate.Providers) == 0 {
		errs = append(errs, errors.New("TRANSLATE_PROVIDERS must name at least one provider"))
	}
	if c.Translate.CommandLimit <= 0 {
		errs = append(errs, fmt.Errorf("TRANSLATE_COMMAND_LIMIT must be positive, got %d", c.Translate.CommandLimit))
	}
	return errors.Join(errs...)
}

// IsGuildBlacklisted reports whether the bot should stay out of guildID.
func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.DiscordGuildBlacklist, guildID)
}
