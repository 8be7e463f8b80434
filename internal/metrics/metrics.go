package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collection metrics
	RecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrank_records_collected_total",
			Help: "Total number of popularity records collected",
		},
		[]string{"source", "region"},
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrank_source_errors_total",
			Help: "Total number of suppressed per-item source errors",
		},
		[]string{"source"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowrank_refresh_duration_seconds",
			Help:    "Duration of full collection cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flowrank_snapshot_records",
			Help: "Number of records in the currently published snapshot",
		},
	)

	CredentialRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowrank_credential_rotations_total",
			Help: "Total number of API credential rotations",
		},
	)

	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrank_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowrank_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
