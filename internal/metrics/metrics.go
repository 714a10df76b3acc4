package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enricher_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint", "status"},
	)
	stageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_stage_failures_total",
			Help: "Enrichment stage failures by stage.",
		},
		[]string{"stage"},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enricher_stage_duration_seconds",
			Help:    "Duration of enrichment stages.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	productsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_products_processed_total",
			Help: "Products that went through the enrichment pipeline, by outcome.",
		},
		[]string{"platform", "outcome"},
	)
	tasksInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enricher_tasks_in_flight",
			Help: "Enrichment tasks currently running.",
		},
	)
	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_jobs_finished_total",
			Help: "Sync jobs by terminal state.",
		},
		[]string{"platform", "state"},
	)
	productsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_products_fetched_total",
			Help: "Products fetched from commerce platforms.",
		},
		[]string{"platform"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(stageFailures)
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(productsProcessed)
	prometheus.MustRegister(tasksInFlight)
	prometheus.MustRegister(jobsFinished)
	prometheus.MustRegister(productsFetched)
}

// RecordRequest records metrics for one HTTP request.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func StageFailed(stage string) {
	stageFailures.WithLabelValues(stage).Inc()
}

func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func ProductProcessed(platform, outcome string) {
	productsProcessed.WithLabelValues(platform, outcome).Inc()
}

func TaskStarted() { tasksInFlight.Inc() }

func TaskFinished() { tasksInFlight.Dec() }

func JobFinished(platform, state string) {
	jobsFinished.WithLabelValues(platform, state).Inc()
}

func ProductsFetched(platform string, n int) {
	productsFetched.WithLabelValues(platform).Add(float64(n))
}

func classifyStatus(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "2xx"
	} else if statusCode >= 300 && statusCode < 400 {
		return "3xx"
	} else if statusCode >= 400 && statusCode < 500 {
		return "4xx"
	} else if statusCode >= 500 && statusCode < 600 {
		return "5xx"
	}
	return "unknown"
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
