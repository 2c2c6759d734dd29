// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the incentive engine.
var (
	// Counters.
	CommitRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incentive_commit_runs_total",
			Help: "Total number of incentive commit runs",
		},
		[]string{"status"},
	)

	CommitRowsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incentive_commit_rows_written_total",
			Help: "Total daily incentive rows written by commits",
		},
		[]string{"op"}, // "inserted" or "updated"
	)

	PreviewRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "incentive_preview_runs_total",
			Help: "Total number of non-persisting preview computations",
		},
	)

	BadgeComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incentive_badges_computed_total",
			Help: "Total badges returned by gamification reads",
		},
		[]string{"badge"},
	)

	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incentive_scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"status"},
	)

	// Histograms.
	ComputeDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "incentive_compute_duration_seconds",
			Help:    "Duration of daily incentive computations",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Gauges.
	ActivePlans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "incentive_active_plans",
			Help: "Current number of active incentive plans",
		},
	)
)

// RecordCommit records the outcome of one commit run.
func RecordCommit(status string, inserted, updated int) {
	CommitRunsTotal.WithLabelValues(status).Inc()
	CommitRowsWrittenTotal.WithLabelValues("inserted").Add(float64(inserted))
	CommitRowsWrittenTotal.WithLabelValues("updated").Add(float64(updated))
}

// RecordBadges records badges returned to a gamification caller.
func RecordBadges(badges []string) {
	for _, b := range badges {
		BadgeComputedTotal.WithLabelValues(b).Inc()
	}
}
