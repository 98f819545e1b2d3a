package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// State of a Chain.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Chain tries its providers in order until one translates. The provider
// list is fixed once the chain is Ready.
type Chain struct {
	logger zerolog.Logger

	initMu    sync.Mutex
	state     atomic.Int32
	candidate []Provider
	providers []Provider
}

func NewChain(logger zerolog.Logger, providers ...Provider) *Chain {
	return &Chain{
		logger:    logger.With().Str("component", "translate").Logger(),
		candidate: providers,
	}
}

func (c *Chain) State() State { return State(c.state.Load()) }

// Initialize loads every provider's languages concurrently. Providers that
// fail to load are logged and left out. It is safe to call repeatedly and
// from several goroutines; only the first successful call does work.
func (c *Chain) Initialize(ctx context.Context) error {
	if c.State() == Ready {
		return nil
	}
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.State() == Ready {
		return nil
	}
	if len(c.candidate) == 0 {
		return ErrNoProviders
	}

	c.state.Store(int32(Initializing))

	errs := make([]error, len(c.candidate))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range c.candidate {
		g.Go(func() error {
			errs[i] = p.InitializeSupportedLanguages(gctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := make([]Provider, 0, len(c.candidate))
	var failed []error
	for i, p := range c.candidate {
		if errs[i] != nil {
			err := &ProviderError{Provider: p.Name(), Err: errs[i]}
			c.logger.Error().Err(err).Str("provider", p.Name()).Msg("failed to load supported languages")
			failed = append(failed, err)
			continue
		}
		c.logger.Info().Str("provider", p.Name()).Int("languages", len(p.SupportedLanguages())).Msg("provider ready")
		ready = append(ready, p)
	}

	if len(ready) == 0 {
		c.state.Store(int32(Uninitialized))
		return fmt.Errorf("%w: %w", ErrNoProviders, errors.Join(failed...))
	}
	if err := ctx.Err(); err != nil {
		c.state.Store(int32(Uninitialized))
		return err
	}

	c.providers = ready
	c.state.Store(int32(Ready))
	return nil
}

func (c *Chain) mustBeReady() {
	if c.State() != Ready {
		panic(ErrNotReady)
	}
}

// Providers returns the ready providers in fallback order.
func (c *Chain) Providers() []Provider {
	c.mustBeReady()
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Primary is the first provider tried.
func (c *Chain) Primary() Provider {
	c.mustBeReady()
	return c.providers[0]
}

// Last is the provider whose unsupported-language answer is final.
func (c *Chain) Last() Provider {
	c.mustBeReady()
	return c.providers[len(c.providers)-1]
}

// SupportedLanguages are the languages of the primary provider.
func (c *Chain) SupportedLanguages() []Language {
	return c.Primary().SupportedLanguages()
}

// CandidateLanguages is CandidateLanguages over the primary provider's list.
func (c *Chain) CandidateLanguages(limit int, preferred []string) []Language {
	return CandidateLanguages(c.SupportedLanguages(), preferred, limit)
}

// Translate sanitizes text and asks each provider in turn.
//
// An unsupported target on any provider but the last moves on to the next
// one; on the last it is returned as is. Other provider failures are logged
// and skipped. When every provider is exhausted ErrNoTranslation is
// returned. A translation identical to the input yields ErrSourceUndetected
// together with the result.
func (c *Chain) Translate(ctx context.Context, target language.Tag, text string, source language.Tag) (*Result, error) {
	if c.State() != Ready {
		return nil, ErrNotReady
	}

	clean := Sanitize(text)
	if clean == "" {
		return nil, ErrNoTranslation
	}

	last := len(c.providers) - 1
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := p.Translate(ctx, target, clean, source)
		if err == nil && res != nil && strings.TrimSpace(res.Text) == "" {
			err = errors.New("empty translation")
		}

		var unsupported *UnsupportedLanguageError
		switch {
		case err == nil && res != nil:
			if strings.TrimSpace(res.Text) == clean {
				c.logger.Debug().Str("provider", p.Name()).Msg("translation equals input")
				return res, ErrSourceUndetected
			}
			return res, nil
		case errors.As(err, &unsupported):
			if i == last {
				return nil, err
			}
			c.logger.Debug().Str("provider", p.Name()).Str("target", target.String()).Msg("target unsupported, trying next provider")
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			perr := &ProviderError{Provider: p.Name(), Err: err}
			c.logger.Error().Err(perr).Str("provider", p.Name()).Int("position", i).Msg("translation provider failed")
		}
	}
	return nil, ErrNoTranslation
}
