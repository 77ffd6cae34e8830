package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// durationBuckets spans fast catalog reads up to slow Excel imports.
var durationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10}

// Metrics collects per-route HTTP metrics on a private registry, keeping the
// process free of the default global registry's collectors.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	inFlight  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldserve_http_requests_total",
				Help: "HTTP requests served, by method, route pattern, and status code.",
			},
			[]string{"method", "route", "code"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fieldserve_http_request_duration_seconds",
				Help:    "HTTP request latency, by method, route pattern, and status code.",
				Buckets: durationBuckets,
			},
			[]string{"method", "route", "code"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldserve_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
	m.registry.MustRegister(m.requests, m.durations, m.inFlight)
	return m
}

// Middleware instruments every request. Labels use the chi route pattern
// ("/work-orders/{id}") rather than the raw path, so IDs do not explode the
// label cardinality.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.inFlight.Inc()

			cw := &codeCapture{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(cw, r)

			m.inFlight.Dec()
			code := strconv.Itoa(cw.code)
			route := routePattern(r)
			m.requests.WithLabelValues(r.Method, route, code).Inc()
			m.durations.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the scrape endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// routePattern resolves the matched chi pattern, falling back to the raw path
// for requests that never hit a registered route.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// codeCapture records the status code written by the handler.
type codeCapture struct {
	http.ResponseWriter
	code int
}

func (c *codeCapture) WriteHeader(code int) {
	c.code = code
	c.ResponseWriter.WriteHeader(code)
}
