package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// DefaultLLMLanguages is used when no language list is configured for the
// chat-model providers.
var DefaultLLMLanguages = []string{
	"ar", "bg", "cs", "da", "de", "el", "en", "es", "et", "fa", "fi", "fr", "he",
	"hi", "hu", "id", "it", "ja", "ko", "lt", "lv", "nl", "no", "pl", "pt", "ro",
	"ru", "sk", "sr", "sv", "th", "tr", "uk", "vi", "zh",
}

const systemPrompt = `You are a translation engine. Translate the user's message into the requested language.
Keep mentions, emoji, markdown, code and URLs unchanged. If the message is already in the requested language, return it unchanged.
Reply with a single JSON object and nothing else: {"source": "<ISO 639-1 code of the detected source language>", "text": "<translation>"}`

// completer sends one system and one user message to a chat model and
// returns the reply text.
type completer interface {
	complete(ctx context.Context, system, prompt string) (string, error)
}

// LLM is a provider backed by a chat-completion model.
type LLM struct {
	languageSet
	logger  zerolog.Logger
	name    string
	codes   []string
	backend completer
}

func newLLM(logger zerolog.Logger, name string, codes []string, backend completer) *LLM {
	if len(codes) == 0 {
		codes = DefaultLLMLanguages
	}
	return &LLM{
		logger:  logger.With().Str("provider", name).Logger(),
		name:    name,
		codes:   codes,
		backend: backend,
	}
}

func (p *LLM) Name() string { return p.name }

func (p *LLM) InitializeSupportedLanguages(context.Context) error {
	return p.load(func() ([]Language, error) {
		return languagesFromCodes(p.codes), nil
	})
}

func (p *LLM) Translate(ctx context.Context, target language.Tag, text string, source language.Tag) (*Result, error) {
	lang, err := p.resolve(p.name, target)
	if err != nil {
		return nil, err
	}

	reply, err := p.backend.complete(ctx, systemPrompt, userPrompt(lang, text, source))
	if err != nil {
		return nil, err
	}

	translated, detected := parseReply(reply)
	if translated == "" {
		return nil, errors.New("model returned an empty reply")
	}
	if detected == "" {
		detected = sourceCode(source)
	}
	p.logger.Debug().Str("target", lang.Code).Str("source", detected).Msg("model translation")
	return &Result{Text: translated, Source: detected, Target: lang.Code, Provider: p.name}, nil
}

func userPrompt(target Language, text string, source language.Tag) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target language: %s (%s)\n", target.Name, target.Code)
	if code := sourceCode(source); code != "" {
		fmt.Fprintf(&b, "Source language: %s\n", code)
	}
	b.WriteString("Message:\n")
	b.WriteString(text)
	return b.String()
}

type modelReply struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// parseReply decodes the JSON reply, tolerating code fences. Anything that
// is not the expected object is taken as the translation itself.
func parseReply(reply string) (text, source string) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	var r modelReply
	if err := json.Unmarshal([]byte(s), &r); err == nil && r.Text != "" {
		return strings.TrimSpace(r.Text), strings.ToLower(strings.TrimSpace(r.Source))
	}
	return strings.TrimSpace(reply), ""
}
