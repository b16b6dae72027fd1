package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Extraction metrics
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Total number of document extractions by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Extraction adapter call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)

	// Record metrics
	patientsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patients_created_total",
			Help: "Total number of patient records created",
		},
	)

	submissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_submissions_total",
			Help: "Total number of confirmed analyses merged into a record",
		},
	)

	labEntriesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_entries_skipped_total",
			Help: "Lab entries dropped while merging because they could not be normalized",
		},
		[]string{"source"},
	)

	// Storage metrics
	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Patient store operation duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_cache_lookups_total",
			Help: "Record cache lookups by result",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per route template. Using the
// route instead of the raw path keeps patient ids out of the label values.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// --- Domain metric helpers ---

// RecordExtraction records one extraction adapter call.
func RecordExtraction(provider string, fallback bool, duration time.Duration) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	extractionsTotal.WithLabelValues(provider, outcome).Inc()
	extractionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordPatientCreated records a new patient registration
func RecordPatientCreated() {
	patientsCreated.Inc()
}

// RecordSubmission records a confirmed analysis
func RecordSubmission() {
	submissionsTotal.Inc()
}

// RecordLabEntrySkipped records a malformed lab entry. source is "event" or
// "historical".
func RecordLabEntrySkipped(source string) {
	labEntriesSkipped.WithLabelValues(source).Inc()
}

// RecordStoreOp records a store operation duration
func RecordStoreOp(backend, operation string, duration time.Duration) {
	storeOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}
