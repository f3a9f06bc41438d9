package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap one of these with %w so callers can test with errors.Is.
var (
	ErrParse                = errors.New("malformed catalog")
	ErrNetwork              = errors.New("network request failed")
	ErrMissingContentLength = errors.New("no content length provided")
	ErrEmptyInput           = errors.New("no candidates to choose from")
	ErrExternalTool         = errors.New("external tool failed")
)

type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("operation %q failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// Kind wraps err with one of the sentinel kinds, keeping err's message.
func Kind(kind, err error) error {
	if err == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, err)
}
