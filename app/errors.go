package app

import (
	"errors"
	"fmt"

	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/domain/rate"
)

// ValidationError reports rejected input. Nothing is written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// validationFor maps domain validation errors onto the offending field.
func validationFor(err error) error {
	switch {
	case errors.Is(err, rate.ErrInvalidValue):
		return invalid("value", "%s", err.Error())
	case errors.Is(err, rate.ErrInvalidUnit):
		return invalid("unit", "%s", err.Error())
	case errors.Is(err, rate.ErrMissingFrom):
		return invalid("from", "%s", err.Error())
	case errors.Is(err, rate.ErrInvalidSpan):
		return invalid("to", "%s", err.Error())
	case errors.Is(err, item.ErrNameRequired):
		return invalid("name", "%s", err.Error())
	}
	return err
}
