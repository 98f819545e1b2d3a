// Package translate holds the translation back-ends and the chain that
// tries them in order.
package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrNoProviders is returned by Initialize when the chain has no providers,
	// or none of them could load its language list.
	ErrNoProviders = errors.New("translate: no providers configured")
	// ErrNotReady is the panic value for chain accessors used before Initialize
	// completed, and the error Translate returns in that state.
	ErrNotReady = errors.New("translate: chain is not initialized")
	// ErrNoTranslation means every provider was tried and none produced a result.
	ErrNoTranslation = errors.New("translate: no provider returned a translation")
	// ErrSourceUndetected means the translation came back identical to the input.
	ErrSourceUndetected = errors.New("translate: source language not detected")
)

// UndetectedSourceMessage is shown to users when ErrSourceUndetected is returned.
const UndetectedSourceMessage = "Sorry, I couldn't detect the source language of that message."

// Language is a supported language as exposed to users.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Result of a successful translation.
type Result struct {
	Text     string
	Source   string // detected or given source code, empty when unknown
	Target   string
	Provider string
}

// Provider is one translation back-end.
type Provider interface {
	Name() string
	// InitializeSupportedLanguages loads the language list. Calling it again
	// after a success is a no-op.
	InitializeSupportedLanguages(ctx context.Context) error
	SupportedLanguages() []Language
	// Translate translates text into target. A source of language.Und asks the
	// provider to detect it. Targets the provider cannot serve yield an
	// *UnsupportedLanguageError.
	Translate(ctx context.Context, target language.Tag, text string, source language.Tag) (*Result, error)
}

// UnsupportedLanguageError is returned when a provider cannot translate into
// the requested language. Message is meant for the end user.
type UnsupportedLanguageError struct {
	Provider string
	Target   string
	Message  string
}

func (e *UnsupportedLanguageError) Error() string { return e.Message }

func unsupported(provider string, target language.Tag) *UnsupportedLanguageError {
	name := target.String()
	if base, conf := target.Base(); conf != language.No {
		if n := display.English.Languages().Name(base); n != "" {
			name = n
		}
	}
	return &UnsupportedLanguageError{
		Provider: provider,
		Target:   target.String(),
		Message:  fmt.Sprintf("Sorry, %s isn't supported by %s.", name, provider),
	}
}

// ProviderError wraps a failure of a single provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return e.Provider + ": " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// DisplayName returns the English name of tag, or fallback when x/text has none.
func DisplayName(tag language.Tag, fallback string) string {
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return fallback
}

// languageSet is embedded by providers to hold their supported languages and
// resolve requested tags against them.
type languageSet struct {
	once    sync.Once
	mu      sync.RWMutex
	langs   []Language
	tags    []language.Tag
	matcher language.Matcher
}

// load fills the set with fn the first time it succeeds.
func (s *languageSet) load(fn func() ([]Language, error)) error {
	s.mu.RLock()
	loaded := s.matcher != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	langs, err := fn()
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		return errors.New("empty language list")
	}

	tags := make([]language.Tag, 0, len(langs))
	kept := make([]Language, 0, len(langs))
	for _, l := range langs {
		tag, err := language.Parse(l.Code)
		if err != nil {
			continue
		}
		if l.Name == "" {
			l.Name = DisplayName(tag, l.Code)
		}
		tags = append(tags, tag)
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		return errors.New("no parseable language codes")
	}

	s.once.Do(func() {
		s.mu.Lock()
		s.langs = kept
		s.tags = tags
		s.matcher = language.NewMatcher(tags)
		s.mu.Unlock()
	})
	return nil
}

// SupportedLanguages returns a copy of the loaded languages.
func (s *languageSet) SupportedLanguages() []Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Language, len(s.langs))
	copy(out, s.langs)
	return out
}

// resolve maps target to the supported language of the same base, so und-FR
// finds fr. A region variant may differ; a different language never matches.
func (s *languageSet) resolve(provider string, target language.Tag) (Language, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.matcher == nil {
		return Language{}, fmt.Errorf("%s: languages not loaded", provider)
	}
	_, idx, conf := s.matcher.Match(target)
	if conf == language.No || !sameBase(s.tags[idx], target) {
		return Language{}, unsupported(provider, target)
	}
	return s.langs[idx], nil
}

func sameBase(a, b language.Tag) bool {
	x, _ := a.Base()
	y, _ := b.Base()
	return x == y
}

// languagesFromCodes names each code with its English display name.
func languagesFromCodes(codes []string) []Language {
	out := make([]Language, 0, len(codes))
	for _, c := range codes {
		out = append(out, Language{Code: c})
	}
	return out
}

// sourceCode returns the code sent to back-ends for source, "" for auto-detect.
func sourceCode(source language.Tag) string {
	if source == language.Und {
		return ""
	}
	base, _ := source.Base()
	return base.String()
}
