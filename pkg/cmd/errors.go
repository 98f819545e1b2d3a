package cmd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoHandler    = errors.New("no handler registered")
	ErrNilCommand   = errors.New("nil command")
	ErrInvalidDelay = errors.New("background delay must be positive")
	ErrHandlerPanic = errors.New("handler panicked")
	ErrResultType   = errors.New("unexpected result type")
	ErrValidation   = errors.New("validation failed")
)

// FieldError describes one failed field constraint.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned when a command or event fails its declared
// constraints. No handler runs when it is returned.
type ValidationError struct {
	Type   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Type, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
