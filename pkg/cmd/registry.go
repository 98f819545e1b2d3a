package cmd

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type commandEntry struct {
	name   string
	handle func(ctx context.Context, c any) (any, error)
}

// NamedEventHandler is a subscribed event handler as seen by a Publisher.
type NamedEventHandler struct {
	Name   string
	Handle func(ctx context.Context, e any) error
}

// registry stores handlers by concrete message type. It is written during
// start-up and read on every dispatch.
type registry struct {
	mu       sync.RWMutex
	commands map[reflect.Type]commandEntry
	events   map[reflect.Type][]NamedEventHandler
}

func newRegistry() *registry {
	return &registry{
		commands: make(map[reflect.Type]commandEntry),
		events:   make(map[reflect.Type][]NamedEventHandler),
	}
}

func (r *registry) addCommand(t reflect.Type, e commandEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[t]; exists {
		panic(fmt.Sprintf("cmd: duplicate handler for %s", e.name))
	}
	r.commands[t] = e
}

func (r *registry) command(t reflect.Type) (commandEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.commands[t]
	return e, ok
}

func (r *registry) addEvent(t reflect.Type, h NamedEventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[t] = append(r.events[t], h)
}

// eventHandlers returns a copy in subscription order.
func (r *registry) eventHandlers(t reflect.Type) []NamedEventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.events[t]
	out := make([]NamedEventHandler, len(hs))
	copy(out, hs)
	return out
}

func (r *registry) commandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.commands))
	for _, e := range r.commands {
		out = append(out, e.name)
	}
	sort.Strings(out)
	return out
}

func (r *registry) eventNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.events))
	for t := range r.events {
		out = append(out, typeName(t))
	}
	sort.Strings(out)
	return out
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeName returns the package-qualified name without pointer indirection,
// e.g. "reply.Send".
func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

// TypeName returns the name used in logs and errors for v's type.
func TypeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return typeName(reflect.TypeOf(v))
}
