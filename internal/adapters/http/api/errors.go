package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrBackpressure    = errors.New("backpressure")
	ErrReplyTooLarge   = errors.New("reply too large")
	ErrUnknownField    = errors.New("unknown field")
	ErrUnsupportedType = errors.New("unsupported export format")
)

// Wrap annotates err with the operation that failed.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind returns an error of the given kind for op that also wraps err.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
