package cmd

import (
	"context"
	"slices"
)

// Behavior names accepted by Bypasser.
const (
	BehaviorValidation = "validation"
	BehaviorElapsed    = "elapsed"
	BehaviorBackground = "background"
)

// Request is the command travelling through the behavior chain.
type Request struct {
	Name    string
	Command any
}

// Next invokes the rest of the chain.
type Next func(ctx context.Context) (any, error)

// Behavior wraps command execution (validation, timing, detaching).
// A behavior either returns without calling next or delegates to it.
type Behavior interface {
	Name() string
	Handle(ctx context.Context, req Request, next Next) (any, error)
}

// apply wraps final with behaviors; the first in the list is the outermost.
// Behaviors named by the command's Bypasser are left out.
func apply(req Request, final Next, behaviors ...Behavior) Next {
	var skip []string
	if b, ok := req.Command.(Bypasser); ok {
		skip = b.BypassBehaviors()
	}

	next := final
	for i := len(behaviors) - 1; i >= 0; i-- {
		b := behaviors[i]
		if slices.Contains(skip, b.Name()) {
			continue
		}
		inner := next
		next = func(ctx context.Context) (any, error) {
			return b.Handle(ctx, req, inner)
		}
	}
	return next
}
