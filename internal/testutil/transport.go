package testutil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Step is one scripted round trip: either a status code or an error.
type Step struct {
	Status int
	Body   string
	Err    error
	Delay  time.Duration
}

// Status is a Step that answers with code.
func Status(code int) Step {
	return Step{Status: code, Body: fmt.Sprintf("status %d", code)}
}

// Fail is a Step that returns err from RoundTrip.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedTransport is an http.RoundTripper that plays scripted steps per
// URL path without touching the network. The last step repeats.
type ScriptedTransport struct {
	mu         sync.Mutex
	scripts    map[string][]Step
	attempts   map[string][]time.Time
	closeIdles int
}

// NewScriptedTransport creates an empty transport. Unscripted paths answer 200.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{
		scripts:  make(map[string][]Step),
		attempts: make(map[string][]time.Time),
	}
}

// Script sets the steps for path.
func (s *ScriptedTransport) Script(path string, steps ...Step) *ScriptedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[path] = steps
	return s
}

// RoundTrip implements http.RoundTripper.
func (s *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := req.URL.Path

	s.mu.Lock()
	n := len(s.attempts[path])
	s.attempts[path] = append(s.attempts[path], time.Now())
	script := s.scripts[path]
	s.mu.Unlock()

	step := Status(http.StatusOK)
	if len(script) > 0 {
		if n >= len(script) {
			n = len(script) - 1
		}
		step = script[n]
	}

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}

	return &http.Response{
		Status:     fmt.Sprintf("%d %s", step.Status, http.StatusText(step.Status)),
		StatusCode: step.Status,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader(step.Body)),
		Request:    req,
	}, nil
}

// Attempts returns the number of round trips for path.
func (s *ScriptedTransport) Attempts(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts[path])
}

// AttemptTimes returns when each round trip for path started.
func (s *ScriptedTransport) AttemptTimes(path string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.attempts[path]...)
}

// CloseIdleConnections counts pool closes.
func (s *ScriptedTransport) CloseIdleConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeIdles++
}

// CloseCount returns how many times CloseIdleConnections was called.
func (s *ScriptedTransport) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeIdles
}
