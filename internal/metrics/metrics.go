// Package metrics provides Prometheus metrics for the guest backend.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultPartial = "partial"
	ResultSkipped = "skipped"
)

const namespace = "omada_guest"

var (
	// TokenRefreshTotal counts controller authentication calls.
	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "refresh_total",
			Help:      "Total number of controller access token refreshes",
		},
		[]string{"result"},
	)

	// UpstreamRequestsTotal counts authenticated controller API calls.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of controller API requests by operation and result",
		},
		[]string{"operation", "result"},
	)

	// CleanupRunsTotal counts cleanup runs by outcome.
	// partial = the run completed but recorded at least one error.
	CleanupRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "runs_total",
			Help:      "Total number of expired guest cleanup runs",
		},
		[]string{"trigger", "result"},
	)

	// CleanupDeletedTotal counts expired guest accounts deleted.
	CleanupDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "deleted_total",
			Help:      "Total number of expired guest accounts deleted",
		},
	)

	// CleanupErrorsTotal counts per-item cleanup failures.
	CleanupErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "errors_total",
			Help:      "Total number of site or account failures during cleanup",
		},
		[]string{"kind"},
	)

	// CleanupRunDuration tracks how long cleanup runs take.
	CleanupRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "run_duration_seconds",
			Help:      "Duration of expired guest cleanup runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// CleanupLastSuccessTimestamp is the unix time of the last run without errors.
	CleanupLastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last cleanup run that completed without errors",
		},
	)

	// NotificationsTotal counts cleanup report deliveries per channel.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Total number of cleanup report notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the registerer. Safe to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			TokenRefreshTotal,
			UpstreamRequestsTotal,
			CleanupRunsTotal,
			CleanupDeletedTotal,
			CleanupErrorsTotal,
			CleanupRunDuration,
			CleanupLastSuccessTimestamp,
			NotificationsTotal,
		)
	})
}
