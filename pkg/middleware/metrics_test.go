package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-test"))
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-test", "GET", "/users/{id}", "404"))

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-test", "GET", "/users/{id}", "404"))
	assert.Equal(t, before+3, after)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("metrics-test")))
}

func TestPrometheusMetrics_UnknownRoute(t *testing.T) {
	h := PrometheusMetrics("metrics-test-raw")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/raw", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-test-raw", "GET", "unknown", "200")))
}
