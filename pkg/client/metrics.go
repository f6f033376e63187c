package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request and batch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchhttp_requests_total",
		Help: "Total attempts by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batchhttp_request_duration_seconds",
		Help:    "Attempt duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"method"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchhttp_retries_total",
		Help: "Total retries by reason",
	}, []string{"reason"})

	retryDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batchhttp_retry_delay_seconds",
		Help:    "Wait before a retry by reason",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"reason"})

	fatalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchhttp_fatal_total",
		Help: "Requests that ended fatally by error class",
	}, []string{"class"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchhttp_batch_duration_seconds",
		Help:    "Wall time of a whole batch",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchhttp_batch_size",
		Help:    "Number of requests per batch",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
