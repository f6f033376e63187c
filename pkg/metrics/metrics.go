// Package metrics exposes the Prometheus registry the batch client reports to.
// Metrics are defined in their respective packages (client, pool, store) to
// keep those packages independent of this one.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the batch client.
// All metrics are registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - batchhttp_requests_total{method, status} (Counter): Attempts by method and HTTP status ("error" for transport failures)
//   - batchhttp_request_duration_seconds{method} (Histogram): Attempt duration
//   - batchhttp_fatal_total{class} (Counter): Fatal outcomes by error class
//
// Retry Metrics (pkg/client):
//   - batchhttp_retries_total{reason} (Counter): Retries by reason (status code or timeout/connect/reset)
//   - batchhttp_retry_delay_seconds{reason} (Histogram): Wait before each retry
//
// Batch Metrics (pkg/client):
//   - batchhttp_batch_duration_seconds (Histogram): Wall time of a batch
//   - batchhttp_batch_size (Histogram): Requests per batch
//
// Pool Metrics (pkg/pool):
//   - batchhttp_pool_open (Gauge): Open pools
//   - batchhttp_pool_inflight (Gauge): Requests holding a slot
//   - batchhttp_pool_wait_seconds (Histogram): Wait for a slot or pacing token
//
// Store Metrics (pkg/store):
//   - batchhttp_store_writes_total (Counter): Values written
//   - batchhttp_store_bytes_total (Counter): Encoded bytes written
//   - batchhttp_store_errors_total{operation} (Counter): Store errors
//
// Example Prometheus Queries:
//
//   # Retry rate by reason
//   sum by (reason) (rate(batchhttp_retries_total[5m]))
//
//   # Share of attempts rejected with 5xx
//   sum(rate(batchhttp_requests_total{status=~"5.."}[5m])) / sum(rate(batchhttp_requests_total[5m]))
//
//   # P95 attempt latency
//   histogram_quantile(0.95, rate(batchhttp_request_duration_seconds_bucket[5m]))
//
//   # Pool saturation
//   batchhttp_pool_inflight
