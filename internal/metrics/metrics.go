// Package metrics registers the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "followup_jobs_enqueued_total",
		Help: "Jobs admitted with a valid scheduled send time.",
	})

	JobsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "followup_jobs_suppressed_total",
		Help: "Jobs admitted without a valid send time.",
	})

	JobsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "followup_jobs_sent_total",
		Help: "Jobs delivered to the SMS provider.",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "followup_jobs_failed_total",
		Help: "Jobs whose delivery attempt failed.",
	})

	ClaimCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "followup_claim_cycles_total",
		Help: "Queue processor cycles, including empty ones.",
	})

	SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "followup_send_duration_seconds",
		Help:    "Latency of individual delivery attempts.",
		Buckets: prometheus.DefBuckets,
	})
)
