// Package metrics holds the Prometheus collectors of the portal.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Route guard decisions by requested path and outcome.",
		},
		[]string{"path", "outcome"},
	)

	loaderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_loader_step_failures_total",
			Help: "Failed data loader steps.",
		},
		[]string{"loader", "step"},
	)

	activeClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_active_clients",
		Help: "Client instances with a mounted application root.",
	})

	navigationsPushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_live_navigations_total",
		Help: "Navigation messages pushed to open pages.",
	})
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			guardDecisions, loaderFailures, activeClients, navigationsPushed,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count, latency and in-flight requests. The
// route label is chi's route pattern, so path parameters do not explode
// the label space.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := strconv.Itoa(status)
		httpRequestDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, code).Inc()
	})
}

func GuardDecision(path, outcome string) {
	guardDecisions.WithLabelValues(path, outcome).Inc()
}

func LoaderStepFailed(loader, step string) {
	loaderFailures.WithLabelValues(loader, step).Inc()
}

func ClientMounted()    { activeClients.Inc() }
func ClientTornDown()   { activeClients.Dec() }
func NavigationPushed() { navigationsPushed.Inc() }
