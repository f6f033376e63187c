package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreWrites counts values written.
	StoreWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchhttp_store_writes_total",
			Help: "Total number of values written to the result store",
		},
	)

	// StoreBytes counts encoded bytes written.
	StoreBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchhttp_store_bytes_total",
			Help: "Total encoded bytes written to the result store",
		},
	)

	// StoreErrors tracks store operation errors.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchhttp_store_errors_total",
			Help: "Total number of result store operation errors",
		},
		[]string{"operation"}, // "put", "get", "keys", "delete"
	)
)
