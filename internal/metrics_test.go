package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumentedRouter(m *Metrics) *chi.Mux {
	router := chi.NewRouter()
	router.Use(m.Middleware())
	router.Get("/work-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Post("/work-orders/{id}/accept", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	return router
}

func serve(router *chi.Mux, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestMetricsCountsByRoutePattern(t *testing.T) {
	m := NewMetrics()
	router := newInstrumentedRouter(m)

	serve(router, "GET", "/work-orders/7f3f2f10")
	serve(router, "GET", "/work-orders/0c9f9f3e")

	// Both requests land on the same route-pattern series, not per-ID series
	count := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/work-orders/{id}", "200"))
	assert.Equal(t, float64(2), count)
}

func TestMetricsRecordsStatusCode(t *testing.T) {
	m := NewMetrics()
	router := newInstrumentedRouter(m)

	w := serve(router, "POST", "/work-orders/7f3f2f10/accept")
	require.Equal(t, http.StatusConflict, w.Code)

	count := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/work-orders/{id}/accept", "409"))
	assert.Equal(t, float64(1), count)
}

func TestMetricsInFlightReturnsToZero(t *testing.T) {
	m := NewMetrics()
	router := newInstrumentedRouter(m)

	serve(router, "GET", "/work-orders/7f3f2f10")

	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight))
}

func TestMetricsScrapeOutput(t *testing.T) {
	m := NewMetrics()
	router := newInstrumentedRouter(m)
	router.Get("/metrics", m.Handler().ServeHTTP)

	serve(router, "GET", "/work-orders/7f3f2f10")

	w := serve(router, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "fieldserve_http_requests_total")
	assert.Contains(t, body, "fieldserve_http_request_duration_seconds")
	assert.Contains(t, body, "fieldserve_http_requests_in_flight")
	assert.Contains(t, body, `route="/work-orders/{id}"`)
	// The scrape itself must not pollute the registry with per-ID series
	assert.NotContains(t, body, "7f3f2f10")
}
