// Package metrics defines the Prometheus collectors promptvault exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptvault_deletions_total",
			Help: "Prompt deletion requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	LockWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promptvault_lock_wait_seconds",
			Help:    "Time spent acquiring the per-prompt mutation lock",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	CacheInvalidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_cache_invalidation_failures_total",
			Help: "Cache invalidations that failed after a committed deletion",
		},
	)

	ArchiveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_archive_failures_total",
			Help: "Deleted prompt versions that could not be archived",
		},
	)
)

// RecordDeletion counts one deletion request.
func RecordDeletion(mode, outcome string) {
	DeletionsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveLockWait records how long a lock acquisition took, successful or not.
func ObserveLockWait(d time.Duration) {
	LockWaitSeconds.Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
