package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arena"

// Registry groups the collectors and the prometheus registry they are
// registered with.
type Registry struct {
	reg *prometheus.Registry

	authOps       *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
	proxyFailures *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	auditDropped  prometheus.Counter
}

// New creates a Registry with its own prometheus registry, including the
// Go runtime and process collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg: reg,
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Routing decisions by layer (edge, client), category and decision.",
		}, []string{"layer", "category", "decision"}),
		proxyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "upstream_failures_total",
			Help:      "Frontend proxy calls that failed to reach or parse the backend.",
		}, []string{"route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate",
			Name:      "limited_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"scope"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by server, route pattern and status code.",
		}, []string{"server", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"server", "route"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit events dropped because the dispatcher buffer was full.",
		}),
	}

	reg.MustRegister(
		r.authOps,
		r.gateDecisions,
		r.proxyFailures,
		r.rateLimited,
		r.httpRequests,
		r.httpDuration,
		r.auditDropped,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

func (r *Registry) AuthOp(op, outcome string) {
	if r == nil {
		return
	}
	r.authOps.WithLabelValues(op, outcome).Inc()
}

func (r *Registry) GateDecision(layer, category, decision string) {
	if r == nil {
		return
	}
	r.gateDecisions.WithLabelValues(layer, category, decision).Inc()
}

func (r *Registry) ProxyFailure(route string) {
	if r == nil {
		return
	}
	r.proxyFailures.WithLabelValues(route).Inc()
}

func (r *Registry) RateLimited(scope string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(scope).Inc()
}

func (r *Registry) AuditDropped() {
	if r == nil {
		return
	}
	r.auditDropped.Inc()
}

func (r *Registry) ObserveHTTP(server, route string, code int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(server, route, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(server, route).Observe(seconds)
}
