package pool

import (
	"net/http"
	"time"
)

const (
	// DefaultMaxConcurrent is the in-flight request cap used when none is configured.
	DefaultMaxConcurrent = 100

	// DefaultTimeout bounds one attempt (connect, send, read headers and body).
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent when the caller supplies no User-Agent header.
	DefaultUserAgent = "batchhttp/0.1 (+https://github.com/Sternrassler/batchhttp)"
)

// Config holds the pool configuration.
type Config struct {
	// MaxConcurrent caps in-flight requests across the pool. 0 means no cap.
	// Negative values fall back to DefaultMaxConcurrent.
	MaxConcurrent int

	// Timeout per attempt. 0 means no timeout.
	// Negative values fall back to DefaultTimeout.
	Timeout time.Duration

	// Header is applied to every request that does not set the key itself.
	// A User-Agent is always present after Normalize.
	Header http.Header

	// RequestsPerSecond paces request starts across the pool. 0 disables pacing.
	RequestsPerSecond float64

	// Transport is the base round tripper. Nil builds a tuned http.Transport.
	Transport http.RoundTripper
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: DefaultMaxConcurrent,
		Timeout:       DefaultTimeout,
		Header:        http.Header{"User-Agent": {DefaultUserAgent}},
	}
}

// Normalize returns a copy of c with malformed values replaced by their
// defaults. It never fails: a bad value is swapped, not rejected.
func (c Config) Normalize() Config {
	if c.MaxConcurrent < 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Timeout < 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}

	header := make(http.Header, len(c.Header)+1)
	for k, vs := range c.Header {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", DefaultUserAgent)
	}
	c.Header = header

	return c
}
