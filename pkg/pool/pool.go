// Package pool owns the shared, concurrency-limited HTTP transport that one
// batch runs over.
package pool

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Prometheus metrics for pool operations.
var (
	poolsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batchhttp_pool_open",
		Help: "Number of connection pools currently open",
	})

	poolInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batchhttp_pool_inflight",
		Help: "Requests currently holding a pool slot",
	})

	poolWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchhttp_pool_wait_seconds",
		Help:    "Time spent waiting for a pool slot or pacing token",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	})
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("pool closed")

// Pool is a scoped transport handle. It is safe for concurrent use.
type Pool struct {
	id        string
	cfg       Config
	client    *http.Client
	transport *limitedTransport
	logger    zerolog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Open creates a pool. Malformed config values are replaced by defaults.
func Open(cfg Config) *Pool {
	cfg = cfg.Normalize()

	base := cfg.Transport
	if base == nil {
		base = newHTTPTransport(cfg.MaxConcurrent)
	}

	lt := &limitedTransport{
		base:   base,
		header: cfg.Header,
	}
	if cfg.MaxConcurrent > 0 {
		lt.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		lt.pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	p := &Pool{
		id:        uuid.NewString(),
		cfg:       cfg,
		transport: lt,
		client: &http.Client{
			Transport: lt,
			Timeout:   cfg.Timeout,
		},
	}
	p.logger = log.With().Str("component", "pool").Str("pool_id", p.id).Logger()

	poolsOpen.Inc()
	p.logger.Debug().
		Int("max_concurrent", cfg.MaxConcurrent).
		Dur("timeout", cfg.Timeout).
		Float64("requests_per_second", cfg.RequestsPerSecond).
		Msg("Pool opened")

	return p
}

func newHTTPTransport(limit int) *http.Transport {
	idle := limit
	if idle <= 0 {
		idle = DefaultMaxConcurrent
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          idle,
		MaxIdleConnsPerHost:   idle,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// ID identifies the pool in logs.
func (p *Pool) ID() string {
	return p.id
}

// Config returns the normalized configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// Do sends one request through the pool. It blocks while the pool is at
// its in-flight cap.
func (p *Pool) Do(req *http.Request) (*http.Response, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return p.client.Do(req)
}

// InFlight returns the number of requests currently holding a slot.
func (p *Pool) InFlight() int {
	return int(p.transport.inFlight.Load())
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Close releases idle connections. Only the first call has an effect.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.client.CloseIdleConnections()
		poolsOpen.Dec()
		p.logger.Debug().Msg("Pool closed")
	})
	return nil
}
