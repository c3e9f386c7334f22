package challenge

import (
	"errors"
	"strings"

	"github.com/dukerupert/motiveme/internal/validate"
)

var (
	ErrNoOccurrenceScheduled = errors.New("no check-in scheduled today")
	ErrAlreadyCheckedIn      = errors.New("already checked in today")
	ErrChallengeNotActive    = errors.New("challenge is not active")
)

type FieldError = validate.FieldError

// ValidationError reports every invalid input field at once. Nothing is
// applied when it is returned.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) merge(fields []FieldError) {
	e.Fields = append(e.Fields, fields...)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
