package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

const DefaultLibreURL = "https://libretranslate.com"

// Libre talks to a LibreTranslate server.
type Libre struct {
	languageSet
	http    httpBackend
	baseURL string
	apiKey  string
}

type LibreOption func(*Libre)

func WithLibreHTTPClient(c *http.Client) LibreOption {
	return func(l *Libre) { l.http.client = c }
}

func NewLibre(logger zerolog.Logger, baseURL, apiKey string, opts ...LibreOption) *Libre {
	if baseURL == "" {
		baseURL = DefaultLibreURL
	}
	l := &Libre{
		http:    newHTTPBackend(logger.With().Str("provider", "libretranslate").Logger(), nil),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Libre) Name() string { return "LibreTranslate" }

type libreLanguage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (l *Libre) InitializeSupportedLanguages(ctx context.Context) error {
	return l.load(func() ([]Language, error) {
		var list []libreLanguage
		err := l.http.do(ctx, func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/languages", nil)
		}, &list)
		if err != nil {
			return nil, err
		}
		out := make([]Language, 0, len(list))
		for _, ll := range list {
			out = append(out, Language{Code: ll.Code, Name: ll.Name})
		}
		return out, nil
	})
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage,omitempty"`
}

func (l *Libre) Translate(ctx context.Context, target language.Tag, text string, source language.Tag) (*Result, error) {
	lang, err := l.resolve(l.Name(), target)
	if err != nil {
		return nil, err
	}

	src := sourceCode(source)
	if src == "" {
		src = "auto"
	}
	payload, err := json.Marshal(libreRequest{Q: text, Source: src, Target: lang.Code, Format: "text", APIKey: l.apiKey})
	if err != nil {
		return nil, err
	}

	var resp libreResponse
	err = l.http.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	detected := ""
	if resp.DetectedLanguage != nil {
		detected = resp.DetectedLanguage.Language
	} else if src != "auto" {
		detected = src
	}
	return &Result{Text: resp.TranslatedText, Source: detected, Target: lang.Code, Provider: l.Name()}, nil
}
