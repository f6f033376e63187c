package requestset

import (
	"errors"
	"fmt"
)

// ErrInvalidRequestFormat is returned when an input value has an unsupported shape.
var ErrInvalidRequestFormat = errors.New("invalid request format")

// InvalidRequestFormatError names the offending key and explains what is wrong.
type InvalidRequestFormatError struct {
	Key    string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InvalidRequestFormatError) Error() string {
	msg := fmt.Sprintf("%s: key %q: %s", ErrInvalidRequestFormat, e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvalidRequestFormatError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidRequestFormat.
func (e *InvalidRequestFormatError) Is(target error) bool {
	return target == ErrInvalidRequestFormat
}

func invalid(key, format string, args ...any) error {
	return &InvalidRequestFormatError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
