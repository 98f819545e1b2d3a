// Package cmd is a typed in-process dispatcher. A command has exactly one
// handler and may produce a result; an event is fanned out to every subscribed
// handler through a Publisher. Commands pass through a fixed chain of behaviors
// (validation, elapsed time, background) before reaching their handler.
//
//	d := cmd.New(logger, jobs)
//	cmd.Register(d, cmd.HandlerFunc[Greet, string](greet))
//	msg, err := cmd.Send[Greet, string](ctx, d, Greet{Name: "ann"})
package cmd

import (
	"context"
	"time"
)

// Handler handles commands of type C.
type Handler[C, R any] interface {
	Handle(ctx context.Context, c C) (R, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[C, R any] func(ctx context.Context, c C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, c C) (R, error) { return f(ctx, c) }

// EventHandler handles events of type E.
type EventHandler[E any] interface {
	Handle(ctx context.Context, e E) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[E any] func(ctx context.Context, e E) error

func (f EventHandlerFunc[E]) Handle(ctx context.Context, e E) error { return f(ctx, e) }

// Unit is the result type of commands that produce nothing.
type Unit struct{}

// Background is implemented by commands that run detached from the caller.
// ok reports whether delay applies; a delay that applies must be positive.
type Background interface {
	BackgroundDelay() (delay time.Duration, ok bool)
}

// Bypasser is implemented by commands that skip some behaviors by name.
type Bypasser interface {
	BypassBehaviors() []string
}
