package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// AuthOutcomes counts authentication middleware results by outcome.
	AuthOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_auth_outcomes_total",
			Help: "Authentication outcomes (ok, missing_token, malformed_header, rejected, error).",
		},
		[]string{"outcome"},
	)

	// AirtableRequests observes outbound Airtable latency per table.
	AirtableRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_airtable_request_duration_seconds",
			Help:    "Airtable API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "status"},
	)

	// CacheLookups counts analytics cache hits and misses.
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_lookups_total",
			Help: "Analytics cache lookups by result.",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers the collectors in the default registry once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
			AuthOutcomes, AirtableRequests, CacheLookups)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency labelled by the matched
// route template so path parameters do not explode cardinality.
func Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			httpRequestDuration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			httpInFlight.Dec()
			return nil
		}
	}
}
