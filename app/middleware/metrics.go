package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Redirects served, partitioned by outcome (ok, not_found, inactive)
	redirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_redirects_total",
			Help: "Total number of short link redirects served",
		},
		[]string{"outcome"},
	)

	// Requests rejected by the rate limiter
	rateLimitDenialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_denials_total",
			Help: "Total number of requests denied by the rate limiter",
		},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path // route template keeps cardinality bounded
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// CountRedirect records the outcome of a redirect attempt.
func CountRedirect(outcome string) {
	redirectsTotal.WithLabelValues(outcome).Inc()
}

// CountRateLimitDenial records a rejected request.
func CountRateLimitDenial() {
	rateLimitDenialsTotal.Inc()
}
