package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidRecord = errors.New("record failed validation")
	ErrInvalidSchema = errors.New("invalid schema")
	ErrUnknownSchema = errors.New("unknown schema")
)

// Code classifies a single field failure.
type Code string

const (
	CodeMissing     Code = "missing"
	CodeInvalidEnum Code = "invalid_enum"
	CodeWrongType   Code = "wrong_type"
	CodeOutOfRange  Code = "out_of_range"
	CodeUnknown     Code = "unknown"
)

// FieldError describes one problem with one field.
type FieldError struct {
	Field   string   `json:"field"`
	Code    Code     `json:"code"`
	Allowed []string `json:"allowed,omitempty"`
	Message string   `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError carries every field error found in one validation call.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidRecord, e.Schema, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidRecord.
func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

// Has reports whether any error for field carries code.
func (e *ValidationError) Has(field string, code Code) bool {
	for _, fe := range e.Errors {
		if fe.Field == field && fe.Code == code {
			return true
		}
	}
	return false
}
