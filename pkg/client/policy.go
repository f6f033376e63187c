package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"slices"
	"syscall"
)

// TransportErrorKind classifies a failed round trip.
type TransportErrorKind int

const (
	// KindOther is any failure not covered below. It is never retried.
	KindOther TransportErrorKind = iota

	// KindTimeout covers per-attempt deadlines and read/dial timeouts.
	KindTimeout

	// KindConnect covers refused connections, DNS and other dial failures.
	KindConnect

	// KindReset covers connections dropped by the peer mid-exchange.
	KindReset
)

// String returns the label used in logs and metrics.
func (k TransportErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnect:
		return "connect"
	case KindReset:
		return "reset"
	default:
		return "other"
	}
}

// DefaultRecoverable lists the transport failures retried by default.
// KindReset is left out: a dropped connection may already have delivered a
// non-idempotent request.
func DefaultRecoverable() []TransportErrorKind {
	return []TransportErrorKind{KindTimeout, KindConnect}
}

// ClassifyTransportError maps an error returned by a round trip to its kind.
func ClassifyTransportError(err error) TransportErrorKind {
	if err == nil {
		return KindOther
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindReset
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return KindConnect
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnect
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindConnect
	}

	return KindOther
}

// RetryPolicy decides which outcomes of an attempt are retried.
type RetryPolicy struct {
	// OnlyAccept200 retries every non-4xx status other than 200.
	// DefaultRetryPolicy turns it on; the zero value accepts any non-4xx.
	OnlyAccept200 bool

	// CaptureStatus lists non-4xx statuses that are retried. A 4xx in the
	// set is still fatal.
	CaptureStatus []int

	// Backoff controls the wait between attempts and the attempt ceiling.
	Backoff Backoff

	// Recoverable lists transport failures that are retried. Nil means
	// DefaultRecoverable; an empty non-nil slice retries none.
	Recoverable []TransportErrorKind
}

// DefaultRetryPolicy loops until a 200 arrives: every other non-4xx status
// and every recoverable transport failure is retried, with a fixed delay
// and no ceiling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		OnlyAccept200: true,
		Backoff:       DefaultBackoff(),
		Recoverable:   DefaultRecoverable(),
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	p.Backoff = p.Backoff.normalize()
	if p.Recoverable == nil {
		p.Recoverable = DefaultRecoverable()
	}

	capture := make([]int, 0, len(p.CaptureStatus))
	for _, s := range p.CaptureStatus {
		if s >= 100 && s <= 999 && !slices.Contains(capture, s) {
			capture = append(capture, s)
		}
	}
	p.CaptureStatus = capture
	return p
}

// verdict is the result of evaluating a received status.
type verdict int

const (
	verdictAccept verdict = iota
	verdictRetry
	verdictFatal
)

// evaluate applies the acceptance rules in order: client error, then
// rejected by the policy, then accepted.
func (p RetryPolicy) evaluate(status int) verdict {
	if status >= 400 && status < 500 {
		return verdictFatal
	}
	if (p.OnlyAccept200 && status != http.StatusOK) || slices.Contains(p.CaptureStatus, status) {
		return verdictRetry
	}
	return verdictAccept
}

// Retries reports whether status would be retried.
func (p RetryPolicy) Retries(status int) bool {
	return p.normalize().evaluate(status) == verdictRetry
}

func (p RetryPolicy) recoverable(kind TransportErrorKind) bool {
	return slices.Contains(p.Recoverable, kind)
}
