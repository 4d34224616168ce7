// internal/common/metrics/metrics.go
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

	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Upstream catalog calls by provider, operation and outcome",
		},
		[]string{"provider", "operation", "status"},
	)

	CatalogThrottled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_throttled_total",
			Help: "Throttling responses received from the catalog",
		},
		[]string{"provider"},
	)

	CatalogLimiterWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_limiter_wait_seconds",
			Help:    "Time spent waiting on the catalog rate limiter",
			Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidate_pool_size",
			Help:    "Number of candidates gathered per recommendation run",
			Buckets: []float64{0, 5, 10, 20, 30, 40},
		},
	)

	RecommendationsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_results",
			Help:    "Number of books returned per recommendation run",
			Buckets: []float64{0, 1, 3, 5, 8, 10},
		},
	)
)
