package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Sternrassler/batchhttp/pkg/requestset"
	"github.com/Sternrassler/batchhttp/pkg/urlresolve"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when a configured attempt ceiling is reached.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the caller's context ends mid-request.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrClientStatus is matched by every *ClientStatusError.
	ErrClientStatus = errors.New("client status error")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassInput represents malformed URLs and request shapes.
	ErrorClassInput ErrorClass = "input"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassRejected represents statuses refused by the acceptance policy.
	ErrorClassRejected ErrorClass = "rejected"

	// ErrorClassNetwork represents recoverable transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTransport represents transport failures outside the recoverable set.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassTransform represents failures raised by a transform.
	ErrorClassTransform ErrorClass = "transform"

	// ErrorClassCancelled represents caller cancellation.
	ErrorClassCancelled ErrorClass = "cancelled"

	// ErrorClassExhausted represents a reached attempt ceiling.
	ErrorClassExhausted ErrorClass = "exhausted"

	// ErrorClassUnknown is used for anything else.
	ErrorClassUnknown ErrorClass = "unknown"
)

// ClientStatusError is returned for 4xx responses. It is never retried.
type ClientStatusError struct {
	StatusCode int
	Method     string
	URL        *url.URL
}

// Error implements the error interface.
func (e *ClientStatusError) Error() string {
	return fmt.Sprintf("client error (status %d): %s %s", e.StatusCode, e.Method, redact(e.URL))
}

// Is reports whether target is ErrClientStatus.
func (e *ClientStatusError) Is(target error) bool {
	return target == ErrClientStatus
}

// RejectedStatusError records a response refused by the acceptance policy.
// It only reaches callers wrapped in ErrRetryExhausted.
type RejectedStatusError struct {
	StatusCode int
	URL        *url.URL
}

// Error implements the error interface.
func (e *RejectedStatusError) Error() string {
	return fmt.Sprintf("rejected status %d: %s", e.StatusCode, redact(e.URL))
}

// TransportError wraps a failed round trip with its classification.
type TransportError struct {
	Kind TransportErrorKind
	URL  *url.URL
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s error: %s: %v", e.Kind, redact(e.URL), e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransformError wraps an error returned by a transform.
type TransformError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %q: %v", e.Name, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransformError) Unwrap() error {
	return e.Err
}

// Class maps an error onto its ErrorClass for logs and metrics.
func Class(err error) ErrorClass {
	var (
		transportErr *TransportError
		transformErr *TransformError
		rejectedErr  *RejectedStatusError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContextCancelled), errors.Is(err, context.Canceled):
		return ErrorClassCancelled
	case errors.Is(err, ErrRetryExhausted):
		return ErrorClassExhausted
	case errors.Is(err, urlresolve.ErrMalformedURL), errors.Is(err, requestset.ErrInvalidRequestFormat):
		return ErrorClassInput
	case errors.Is(err, ErrClientStatus):
		return ErrorClassClient
	case errors.As(err, &transformErr):
		return ErrorClassTransform
	case errors.As(err, &rejectedErr):
		return ErrorClassRejected
	case errors.As(err, &transportErr):
		if transportErr.Kind == KindOther {
			return ErrorClassTransport
		}
		return ErrorClassNetwork
	default:
		return ErrorClassUnknown
	}
}

// redact strips credentials from u for messages and logs.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
