package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks every request attempt by result type
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_attempts_total",
			Help: "Total number of request attempts",
		},
		[]string{"result"},
	)

	// RetriesTotal tracks attempts that were followed by a retry
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_retries_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"class"},
	)

	// OutcomesTotal tracks final results per stop reason and failure class
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_outcomes_total",
			Help: "Total number of finished invocations",
		},
		[]string{"reason", "class"},
	)

	// AttemptLatency tracks the duration of a single attempt
	AttemptLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetcher_attempt_latency_seconds",
			Help:    "Request attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BackoffSeconds tracks the delays slept between attempts
	BackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetcher_backoff_seconds",
			Help:    "Backoff delay before a retry in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	// UpstreamRequestsTotal tracks requests served by the flaky upstream
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_upstream_requests_total",
			Help: "Total number of requests served by the flaky upstream",
		},
		[]string{"route"},
	)

	// JournalEntries tracks pending entries in the failure journal
	JournalEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetcher_journal_entries",
			Help: "Pending entries in the failure journal",
		},
	)

	// DBConnectionPoolUsage tracks the percentage of journal database connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetcher_db_connection_pool_usage",
			Help: "Percentage of database connections in use",
		},
	)
)
