package pool

import (
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// limitedTransport wraps the base round tripper with:
// - a global in-flight cap (semaphore, released once headers arrive)
// - optional request pacing
// - default headers
type limitedTransport struct {
	base     http.RoundTripper
	header   http.Header
	sem      *semaphore.Weighted
	pacer    *rate.Limiter
	inFlight atomic.Int64
}

// RoundTrip implements http.RoundTripper.
func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	start := time.Now()
	if t.sem != nil {
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer t.sem.Release(1)
	}
	if t.pacer != nil {
		if err := t.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}
	poolWaitSeconds.Observe(time.Since(start).Seconds())

	// RoundTrippers must not modify the caller's request.
	if missing := t.missingHeaders(req.Header); len(missing) > 0 {
		req = req.Clone(ctx)
		for k, vs := range missing {
			req.Header[k] = append([]string(nil), vs...)
		}
	}

	t.inFlight.Add(1)
	poolInFlight.Inc()
	defer func() {
		t.inFlight.Add(-1)
		poolInFlight.Dec()
	}()

	return t.base.RoundTrip(req)
}

func (t *limitedTransport) missingHeaders(h http.Header) http.Header {
	var missing http.Header
	for k, vs := range t.header {
		if _, ok := h[k]; ok {
			continue
		}
		if missing == nil {
			missing = make(http.Header)
		}
		missing[k] = vs
	}
	return missing
}

// CloseIdleConnections forwards to the base transport when it supports it.
func (t *limitedTransport) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}
	if ci, ok := t.base.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}
