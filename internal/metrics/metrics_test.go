package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	r := New()

	r.AuthOp("login", "success")
	r.AuthOp("login", "success")
	r.GateDecision("edge", "protected", "redirect")
	r.ProxyFailure("login")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.authOps.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.gateDecisions.WithLabelValues("edge", "protected", "redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.proxyFailures.WithLabelValues("login")))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.AuthOp("login", "failure")
	r.GateDecision("edge", "public", "allow")
	r.ObserveHTTP("api", "/x", 200, 0.1)
	r.AuditDropped()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveHTTP("api", "/api/auth/me", 401, 0.002)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `arena_http_requests_total{code="401",route="/api/auth/me",server="api"} 1`), body)
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := New()
	router := chi.NewRouter()
	router.Use(r.Middleware("api"))
	router.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("api", "GET /users/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("api", "unmatched", "404")))

	var nilReg *Registry
	h := nilReg.Middleware("api")(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
