package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	uploadRequestsTotal *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	uploadLatencySecs   prometheus.Histogram

	gradingRunsTotal    *prometheus.CounterVec
	gradingLatencySecs  prometheus.Histogram
	gradingFlaggedTotal prometheus.Counter
	reviewsTotal        *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penmark_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "penmark_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penmark_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penmark_upload_requests_total",
			Help: "Total number of accepted submission uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penmark_upload_rejected_total",
			Help: "Total number of rejected submission uploads by reason.",
		}, []string{"reason"})

		uploadLatencySecs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "penmark_upload_latency_seconds",
			Help:    "Latency distribution for submission upload handling.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		gradingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penmark_grading_runs_total",
			Help: "Total number of grading runs by outcome.",
		}, []string{"outcome"})

		gradingLatencySecs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "penmark_grading_latency_seconds",
			Help:    "End-to-end latency distribution for grading runs.",
			Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		})

		gradingFlaggedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "penmark_grading_flagged_total",
			Help: "Total number of grading results flagged for manual review.",
		})

		reviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penmark_reviews_completed_total",
			Help: "Total number of finalized teacher reviews by kind.",
		}, []string{"kind"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySecs,
			gradingRunsTotal, gradingLatencySecs, gradingFlaggedTotal, reviewsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// UploadRequests exposes the counter for accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload handling latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySecs
}

// GradingRuns exposes the counter for grading run outcomes.
func GradingRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRunsTotal
}

// GradingLatency exposes the grading latency histogram.
func GradingLatency() prometheus.Histogram {
	RegisterMetrics()
	return gradingLatencySecs
}

// GradingFlagged exposes the counter for review-flagged results.
func GradingFlagged() prometheus.Counter {
	RegisterMetrics()
	return gradingFlaggedTotal
}

// ReviewsCompleted exposes the counter for finalized reviews.
func ReviewsCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsTotal
}
