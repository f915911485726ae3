package common

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joseph-ayodele/vinscan/internal/vin"
)

// ValidationError is one failed rule on one field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

// ValidationRule checks one value; nil means it passed.
type ValidationRule func(field string, value any) *ValidationError

// Validator collects rule failures across several fields.
type Validator struct {
	failures []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field applies rules to value and records every failure.
func (v *Validator) Field(field string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if f := rule(field, value); f != nil {
			v.failures = append(v.failures, *f)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

// Error returns the combined failures wrapping ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

func (v *Validator) ErrorMessage() string {
	msgs := make([]string, 0, len(v.failures))
	for _, f := range v.failures {
		msgs = append(msgs, f.Error())
	}
	return strings.Join(msgs, "; ")
}

func fail(field string, value any, msg string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: msg}
}

func Required(field string, value any) *ValidationError {
	switch v := value.(type) {
	case nil:
		return fail(field, "<nil>", "is required")
	case string:
		if strings.TrimSpace(v) == "" {
			return fail(field, v, "is required")
		}
	case []byte:
		if len(v) == 0 {
			return fail(field, "<empty>", "is required")
		}
	}
	return nil
}

// OneOf accepts string values from a closed set.
func OneOf(allowed ...string) ValidationRule {
	return func(field string, value any) *ValidationError {
		if s, _ := value.(string); slices.Contains(allowed, s) {
			return nil
		}
		return fail(field, value, "must be one of: "+strings.Join(allowed, ", "))
	}
}

// Positive accepts integers and durations greater than zero.
func Positive(field string, value any) *ValidationError {
	var ok bool
	switch v := value.(type) {
	case int:
		ok = v > 0
	case int32:
		ok = v > 0
	case int64:
		ok = v > 0
	case uint:
		ok = v > 0
	case time.Duration:
		ok = v > 0
	}
	if !ok {
		return fail(field, value, "must be greater than zero")
	}
	return nil
}

// VINShape applies the same shape rules the extractor uses.
func VINShape(field string, value any) *ValidationError {
	s, _ := value.(string)
	if v := vin.ShapeViolations(s); len(v) > 0 {
		return fail(field, value, "is not a VIN: "+strings.Join(v, ", "))
	}
	return nil
}

// ValidateAndReturnError turns collected failures into an InvalidArgument status.
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
