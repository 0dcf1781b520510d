package parser

import (
	"errors"
	"fmt"
)

// ErrUnparseable is the sentinel kind for replies without an extractable object.
var ErrUnparseable = errors.New("unparseable reply")

// ParseError reports why a reply could not be parsed. Raw always carries the
// reply exactly as it was received.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnparseable, e.Reason)
}

// Unwrap lets errors.Is match ErrUnparseable.
func (e *ParseError) Unwrap() error { return ErrUnparseable }
