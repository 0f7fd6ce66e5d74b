// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Calls made to the assistant service by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AssistantRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_request_duration_seconds",
			Help:    "Latency of assistant service calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RecommendationRunPolls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_run_polls",
			Help:    "Status polls needed before a run reached a terminal state",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 40, 60},
		},
	)

	RecommendationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_generated_total",
			Help: "Recommendations returned to callers by outcome (extracted or fallback)",
		},
		[]string{"outcome"},
	)

	RecommendationsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendations_rejected_inflight_total",
			Help: "Recommendation jobs rejected because one was already running for the intake",
		},
	)
)
