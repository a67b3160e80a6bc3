// Package metrics exposes Prometheus collectors for the analysis
// orchestration pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsStarted counts analysis jobs started, by mode.
	JobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_jobs_started_total",
		Help: "Number of analysis jobs started.",
	}, []string{"mode"})

	// JobsFinished counts terminal job outcomes, by mode and outcome.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_jobs_finished_total",
		Help: "Number of analysis jobs reaching a terminal outcome.",
	}, []string{"mode", "outcome"})

	// PollTicks counts status poll requests issued.
	PollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_poll_ticks_total",
		Help: "Number of status poll requests issued.",
	})

	// PollTransientFailures counts transient (retried) polling failures.
	PollTransientFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_poll_transient_failures_total",
		Help: "Number of transient status poll failures that were retried.",
	})

	// PollDuration observes the latency of status poll requests.
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_poll_duration_seconds",
		Help:    "Latency of status poll requests.",
		Buckets: prometheus.DefBuckets,
	})
)

// Job outcome label values.
const (
	OutcomeCompleted      = "completed"
	OutcomeFailed         = "failed"
	OutcomeExpired        = "expired"
	OutcomeMalformed      = "malformed"
	OutcomeTransientLimit = "transient_limit"
	OutcomeAbandoned      = "abandoned"
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
