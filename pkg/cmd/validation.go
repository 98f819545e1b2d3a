package cmd

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns the validator used by default for commands and events.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ValidationBehavior checks `validate` struct tags before the handler runs.
type ValidationBehavior struct {
	validate *validator.Validate
}

// NewValidationBehavior returns a ValidationBehavior. A nil v uses NewValidator.
func NewValidationBehavior(v *validator.Validate) *ValidationBehavior {
	if v == nil {
		v = NewValidator()
	}
	return &ValidationBehavior{validate: v}
}

func (b *ValidationBehavior) Name() string { return BehaviorValidation }

func (b *ValidationBehavior) Handle(ctx context.Context, req Request, next Next) (any, error) {
	if err := validateStruct(b.validate, req.Name, req.Command); err != nil {
		return nil, err
	}
	return next(ctx)
}

// validateStruct returns a *ValidationError listing every failed field.
// Values that are not structs have nothing to validate.
func validateStruct(v *validator.Validate, name string, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", name, err)
	}

	out := &ValidationError{Type: name, Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath drops the root type from the namespace: "Send.Source.ID" -> "Source.ID".
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.StructField()
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = " items"
	}

	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "len":
		return fmt.Sprintf("must be exactly %s%s", fe.Param(), unit)
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
