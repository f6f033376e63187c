// Package testutil provides testing utilities for the batch client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockServer is a configurable mock HTTP server. Each path can be given a
// script of responses that is played in order; the last entry repeats.
type MockServer struct {
	server  *httptest.Server
	mu      sync.Mutex
	scripts map[string][]MockResponse
	counts  map[string]int

	inFlight    int
	maxInFlight int

	// LastRequestHeader is the header of the most recent request.
	LastRequestHeader http.Header
}

// NewMockServer creates and starts a mock server.
func NewMockServer() *MockServer {
	m := &MockServer{
		scripts: make(map[string][]MockResponse),
		counts:  make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the server base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockServer) Close() {
	m.server.Close()
}

// Client returns an http.Client wired to the server.
func (m *MockServer) Client() *http.Client {
	return m.server.Client()
}

// Script sets the ordered responses for a path.
func (m *MockServer) Script(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = responses
}

// ScriptStatus scripts a path with bare status codes.
func (m *MockServer) ScriptStatus(path string, statuses ...int) {
	responses := make([]MockResponse, len(statuses))
	for i, s := range statuses {
		responses[i] = MockResponse{StatusCode: s, Body: fmt.Sprintf("status %d", s)}
	}
	m.Script(path, responses...)
}

// RequestCount returns the number of requests received for path.
func (m *MockServer) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[path]
}

// TotalRequests returns the number of requests received for all paths.
func (m *MockServer) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.counts {
		total += c
	}
	return total
}

// MaxInFlight returns the highest number of concurrently handled requests.
func (m *MockServer) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// Reset clears counters and scripts.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = make(map[string][]MockResponse)
	m.counts = make(map[string]int)
	m.maxInFlight = 0
	m.LastRequestHeader = nil
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	n := m.counts[r.URL.Path]
	m.counts[r.URL.Path] = n + 1
	m.LastRequestHeader = r.Header.Clone()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	script, ok := m.scripts[r.URL.Path]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if !ok || len(script) == 0 {
		m.defaultHandler(w, r)
		return
	}

	if n >= len(script) {
		n = len(script) - 1
	}
	resp := script[n]

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// defaultHandler echoes the request method and path.
func (m *MockServer) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s %s", r.Method, r.URL.Path)
}

// NewOKResponse creates a 200 response with the given body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewDelayedResponse creates a 200 response that is sent after d.
func NewDelayedResponse(body string, d time.Duration) MockResponse {
	resp := NewOKResponse(body)
	resp.Delay = d
	return resp
}

// NewUnavailableResponse creates a 503 Service Unavailable response.
func NewUnavailableResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error": "service unavailable"}`,
		Headers:    map[string]string{"Retry-After": "1"},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "not found"}`,
	}
}
