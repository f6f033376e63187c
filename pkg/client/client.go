// Package client runs batches of HTTP requests concurrently over one shared
// pool, retrying each request until it reaches a terminal outcome.
package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/batchhttp/pkg/logging"
	"github.com/Sternrassler/batchhttp/pkg/pool"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
	"github.com/Sternrassler/batchhttp/pkg/urlresolve"
)

// Client runs batches. It is safe for concurrent use.
type Client struct {
	config   Config
	resolver *urlresolve.Resolver
	builder  *requestset.Builder
	logger   zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL joins relative targets. Empty or malformed means targets
	// must be absolute.
	BaseURL string

	// Encoded keeps targets byte-for-byte instead of canonicalizing them.
	Encoded bool

	// Method is the default method. Unknown methods fall back to GET.
	Method string

	// Header applies to every request that does not set the key itself.
	Header http.Header

	// MaxConcurrent caps in-flight requests per pool. Zero means no cap;
	// negative means pool.DefaultMaxConcurrent.
	MaxConcurrent int

	// Timeout bounds one attempt. Zero means no timeout; negative means
	// pool.DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond paces request starts. 0 disables pacing.
	RequestsPerSecond float64

	// Transport is the base round tripper for pools the client opens.
	Transport http.RoundTripper

	// Policy decides which outcomes are retried.
	Policy RetryPolicy

	// Pipeline decides what happens to accepted responses.
	Pipeline Pipeline

	// Delay is slept after each success, before the outcome is recorded.
	// In batches it applies only when there are more than two requests.
	Delay time.Duration

	// Quiet silences per-attempt diagnostics.
	Quiet bool

	// FailFast cancels siblings as soon as one request turns fatal.
	FailFast bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Method:        http.MethodGet,
		MaxConcurrent: pool.DefaultMaxConcurrent,
		Timeout:       pool.DefaultTimeout,
		Policy:        DefaultRetryPolicy(),
	}
}

// New creates a client. Malformed values are replaced by defaults.
func New(cfg Config) *Client {
	if cfg.MaxConcurrent < 0 {
		cfg.MaxConcurrent = pool.DefaultMaxConcurrent
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = pool.DefaultTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	cfg.Method = requestset.NormalizeMethod(cfg.Method)
	cfg.Policy = cfg.Policy.normalize()
	cfg.Pipeline = cfg.Pipeline.normalize()

	resolver := urlresolve.New(cfg.BaseURL, cfg.Encoded)
	logger := logging.NewLogger("batch-client")

	if cfg.BaseURL != "" && resolver.Base == nil {
		logger.Warn().Str("base_url", cfg.BaseURL).Msg("Ignoring unusable base URL")
	}

	return &Client{
		config:   cfg,
		resolver: resolver,
		builder:  requestset.NewBuilder(resolver, requestset.Options{Method: cfg.Method}),
		logger:   logger,
	}
}

// Config returns the normalized configuration.
func (c *Client) Config() Config {
	return c.config
}

// Sink returns the sink TransformInto writes to, or nil.
func (c *Client) Sink() Sink {
	return c.config.Pipeline.Sink
}

// Build normalizes input the way Batch does, without sending anything.
func (c *Client) Build(in requestset.Input) (*requestset.Set, error) {
	return c.builder.Build(in)
}

// PoolConfig returns the configuration used for pools the client opens.
func (c *Client) PoolConfig() pool.Config {
	return pool.Config{
		MaxConcurrent:     c.config.MaxConcurrent,
		Timeout:           c.config.Timeout,
		Header:            c.config.Header,
		RequestsPerSecond: c.config.RequestsPerSecond,
		Transport:         c.config.Transport,
	}
}

// OpenPool opens a pool configured like the ones Batch opens. The caller
// owns it and must Close it.
func (c *Client) OpenPool() *pool.Pool {
	return pool.Open(c.PoolConfig())
}
