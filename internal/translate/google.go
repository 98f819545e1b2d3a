package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// DefaultGoogleURL is the keyless endpoint used by the Google Translate web widget.
const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

// googleLanguages is the list served by the gtx endpoint. It has no
// discovery call.
var googleLanguages = []string{
	"af", "sq", "am", "ar", "hy", "az", "eu", "be", "bn", "bs", "bg", "ca", "ceb",
	"zh-CN", "zh-TW", "co", "hr", "cs", "da", "nl", "en", "eo", "et", "fi", "fr",
	"fy", "gl", "ka", "de", "el", "gu", "ht", "ha", "haw", "he", "hi", "hmn", "hu",
	"is", "ig", "id", "ga", "it", "ja", "jv", "kn", "kk", "km", "rw", "ko", "ku",
	"ky", "lo", "la", "lv", "lt", "lb", "mk", "mg", "ms", "ml", "mt", "mi", "mr",
	"mn", "my", "ne", "no", "ny", "or", "ps", "fa", "pl", "pt", "pa", "ro", "ru",
	"sm", "gd", "sr", "st", "sn", "sd", "si", "sk", "sl", "so", "es", "su", "sw",
	"sv", "tl", "tg", "ta", "tt", "te", "th", "tr", "tk", "uk", "ur", "ug", "uz",
	"vi", "cy", "xh", "yi", "yo", "zu",
}

// Google talks to the public gtx endpoint.
type Google struct {
	languageSet
	http     httpBackend
	endpoint string
}

type GoogleOption func(*Google)

// WithGoogleURL overrides the endpoint.
func WithGoogleURL(u string) GoogleOption {
	return func(g *Google) {
		if u != "" {
			g.endpoint = u
		}
	}
}

// WithGoogleHTTPClient sets the HTTP client.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.http.client = c }
}

func NewGoogle(logger zerolog.Logger, opts ...GoogleOption) *Google {
	g := &Google{
		http:     newHTTPBackend(logger.With().Str("provider", "google").Logger(), nil),
		endpoint: DefaultGoogleURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string { return "Google Translate" }

func (g *Google) InitializeSupportedLanguages(context.Context) error {
	return g.load(func() ([]Language, error) {
		return languagesFromCodes(googleLanguages), nil
	})
}

func (g *Google) Translate(ctx context.Context, target language.Tag, text string, source language.Tag) (*Result, error) {
	lang, err := g.resolve(g.Name(), target)
	if err != nil {
		return nil, err
	}

	sl := sourceCode(source)
	if sl == "" {
		sl = "auto"
	}
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sl)
	params.Set("tl", lang.Code)
	params.Set("dt", "t")
	params.Set("q", text)
	reqURL := g.endpoint + "?" + params.Encode()

	var raw []json.RawMessage
	err = g.http.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		return req, nil
	}, &raw)
	if err != nil {
		return nil, err
	}

	translated, detected, err := parseGTX(raw)
	if err != nil {
		return nil, err
	}
	if detected == "" && sl != "auto" {
		detected = sl
	}
	return &Result{Text: translated, Source: detected, Target: lang.Code, Provider: g.Name()}, nil
}

// parseGTX reads [[[translated, original, ...], ...], null, "detected", ...].
func parseGTX(raw []json.RawMessage) (string, string, error) {
	if len(raw) < 1 {
		return "", "", errors.New("unexpected gtx response")
	}

	var sentences [][]any
	if err := json.Unmarshal(raw[0], &sentences); err != nil {
		return "", "", fmt.Errorf("decode sentences: %w", err)
	}

	var b strings.Builder
	for _, s := range sentences {
		if len(s) == 0 {
			continue
		}
		if part, ok := s[0].(string); ok {
			b.WriteString(part)
		}
	}
	if b.Len() == 0 {
		return "", "", errors.New("empty gtx translation")
	}

	var detected string
	if len(raw) > 2 {
		_ = json.Unmarshal(raw[2], &detected)
	}
	return b.String(), detected, nil
}
