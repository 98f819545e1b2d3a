package cmd

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/pkg/jobmgr"
)

// Dispatcher routes commands to their single handler and events to their
// subscribers. Handlers are registered at start-up; dispatching to an
// unregistered command type is a configuration error.
type Dispatcher struct {
	logger    zerolog.Logger
	jobs      *jobmgr.Manager
	registry  *registry
	validate  *validator.Validate
	behaviors []Behavior
	publisher Publisher
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPublisher sets the strategy used by Publish. The default is a ConcurrentPublisher.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithValidator sets the validator used by the validation behavior.
func WithValidator(v *validator.Validate) Option {
	return func(d *Dispatcher) { d.validate = v }
}

// New creates a Dispatcher. jobs runs background commands.
func New(logger zerolog.Logger, jobs *jobmgr.Manager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		jobs:     jobs,
		registry: newRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.validate == nil {
		d.validate = NewValidator()
	}
	if d.publisher == nil {
		d.publisher = NewConcurrentPublisher(logger)
	}

	d.behaviors = []Behavior{
		NewValidationBehavior(d.validate),
		NewElapsedBehavior(d.logger),
		NewBackgroundBehavior(d.logger, jobs),
	}
	return d
}

// Register sets h as the handler of command type C. It panics if C already
// has a handler.
func Register[C, R any](d *Dispatcher, h Handler[C, R]) {
	t := typeOf[C]()
	d.registry.addCommand(t, commandEntry{
		name: typeName(t),
		handle: func(ctx context.Context, c any) (any, error) {
			return h.Handle(ctx, c.(C))
		},
	})
}

// Subscribe adds h to the handlers of event type E. Handlers start in
// subscription order. An empty name is replaced by h's type name.
func Subscribe[E any](d *Dispatcher, name string, h EventHandler[E]) {
	if name == "" {
		name = TypeName(h)
	}
	d.registry.addEvent(typeOf[E](), NamedEventHandler{
		Name: name,
		Handle: func(ctx context.Context, e any) error {
			return h.Handle(ctx, e.(E))
		},
	})
}

// Send dispatches c to its handler through the behavior chain.
// Background commands return the zero R.
func Send[C, R any](ctx context.Context, d *Dispatcher, c C) (R, error) {
	var zero R

	out, err := d.SendAny(ctx, c)
	if err != nil || out == nil {
		return zero, err
	}

	r, ok := out.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, TypeName(c), out)
	}
	return r, nil
}

// SendAny is the untyped form of Send, used where the command type is only
// known at run time (scheduled commands).
func (d *Dispatcher) SendAny(ctx context.Context, c any) (any, error) {
	if c == nil {
		return nil, ErrNilCommand
	}

	t := reflect.TypeOf(c)
	entry, ok := d.registry.command(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, typeName(t))
	}

	req := Request{Name: entry.name, Command: c}
	final := func(ctx context.Context) (any, error) {
		return safeHandle(ctx, entry, c)
	}
	return apply(req, final, d.behaviors...)(ctx)
}

// Publish hands e to the configured publisher together with its subscribers.
func Publish[E any](ctx context.Context, d *Dispatcher, e E) error {
	return d.PublishAny(ctx, e)
}

// PublishAny is the untyped form of Publish.
func (d *Dispatcher) PublishAny(ctx context.Context, e any) error {
	if e == nil {
		return ErrNilCommand
	}

	handlers := d.registry.eventHandlers(reflect.TypeOf(e))
	if len(handlers) == 0 {
		return nil
	}
	return d.publisher.Publish(ctx, e, handlers)
}

// Commands returns the names of command types with a handler, sorted.
func (d *Dispatcher) Commands() []string { return d.registry.commandNames() }

// Events returns the names of event types with subscribers, sorted.
func (d *Dispatcher) Events() []string { return d.registry.eventNames() }

func safeHandle(ctx context.Context, e commandEntry, c any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, e.name, r)
		}
	}()
	return e.handle(ctx, c)
}
