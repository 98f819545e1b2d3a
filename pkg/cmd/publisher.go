package cmd

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/pkg/jobmgr"
)

// Publisher runs the handlers subscribed to one event. A handler's failure
// never reaches its siblings or the caller.
type Publisher interface {
	Publish(ctx context.Context, event any, handlers []NamedEventHandler) error
}

// ConcurrentPublisher starts every handler at once, in subscription order,
// and waits for all of them.
type ConcurrentPublisher struct {
	logger         zerolog.Logger
	uninstrumented map[reflect.Type]struct{}
}

type ConcurrentOption func(*ConcurrentPublisher)

// WithUninstrumented lists event types, by example value, that skip per-handler
// timing logs. Failures are still logged.
func WithUninstrumented(events ...any) ConcurrentOption {
	return func(p *ConcurrentPublisher) {
		for _, e := range events {
			p.uninstrumented[reflect.TypeOf(e)] = struct{}{}
		}
	}
}

func NewConcurrentPublisher(logger zerolog.Logger, opts ...ConcurrentOption) *ConcurrentPublisher {
	p := &ConcurrentPublisher{
		logger:         logger.With().Str("component", "publisher").Logger(),
		uninstrumented: make(map[reflect.Type]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ConcurrentPublisher) Publish(ctx context.Context, event any, handlers []NamedEventHandler) error {
	name := TypeName(event)
	_, quiet := p.uninstrumented[reflect.TypeOf(event)]

	var wg sync.WaitGroup
	wg.Add(len(handlers))
	for _, h := range handlers {
		go func() {
			defer wg.Done()
			p.run(ctx, name, quiet, h, event)
		}()
	}
	wg.Wait()

	return nil
}

func (p *ConcurrentPublisher) run(ctx context.Context, name string, quiet bool, h NamedEventHandler, event any) {
	l := p.logger.With().Str("event", name).Str("handler", h.Name).Logger()

	start := time.Now()
	if !quiet {
		l.Debug().Msg("handling event")
	}

	if err := safeHandleEvent(ctx, h, event); err != nil {
		l.Error().Err(err).Msg("event handler failed")
		return
	}

	if !quiet {
		l.Debug().Int64("elapsed_ms", time.Since(start).Milliseconds()).Msg("event handled")
	}
}

// BackgroundPublisher starts every handler as a detached job and returns
// without waiting. With event validation enabled an invalid event is
// rejected before any handler starts.
type BackgroundPublisher struct {
	logger   zerolog.Logger
	jobs     *jobmgr.Manager
	validate *validator.Validate
}

type BackgroundOption func(*BackgroundPublisher)

// WithEventValidation validates events with v before fan-out.
func WithEventValidation(v *validator.Validate) BackgroundOption {
	return func(p *BackgroundPublisher) { p.validate = v }
}

func NewBackgroundPublisher(logger zerolog.Logger, jobs *jobmgr.Manager, opts ...BackgroundOption) *BackgroundPublisher {
	p := &BackgroundPublisher{
		logger: logger.With().Str("component", "publisher").Logger(),
		jobs:   jobs,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *BackgroundPublisher) Publish(ctx context.Context, event any, handlers []NamedEventHandler) error {
	name := TypeName(event)

	if p.validate != nil {
		if err := validateStruct(p.validate, name, event); err != nil {
			return err
		}
	}

	for _, h := range handlers {
		_, err := p.jobs.Go(ctx, name+"/"+h.Name, 0, func(ctx context.Context) error {
			return safeHandleEvent(ctx, h, event)
		})
		if err != nil {
			p.logger.Error().Err(err).Str("event", name).Str("handler", h.Name).Msg("failed to start event handler")
		}
	}
	return nil
}

func safeHandleEvent(ctx context.Context, h NamedEventHandler, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, h.Name, r)
		}
	}()
	return h.Handle(ctx, event)
}
