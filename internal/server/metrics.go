// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the API on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesSaved   prometheus.Counter
	storedQueries  prometheus.Gauge
	screeningRuns  prometheus.Counter
	verdictsTotal  *prometheus.CounterVec
	diagramExports *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "slr",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "slr",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slr",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		queriesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slr",
			Subsystem: "queries",
			Name:      "saved_total",
			Help:      "Total queries saved through the API.",
		}),
		storedQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slr",
			Subsystem: "queries",
			Name:      "stored",
			Help:      "Number of queries in the store.",
		}),
		screeningRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slr",
			Subsystem: "screening",
			Name:      "runs_total",
			Help:      "Total simulated screening runs.",
		}),
		verdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "slr",
				Subsystem: "screening",
				Name:      "verdicts_total",
				Help:      "Simulated verdicts by value.",
			},
			[]string{"verdict"},
		),
		diagramExports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "slr",
				Subsystem: "diagram",
				Name:      "exports_total",
				Help:      "Diagram export calls by outcome.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.queriesSaved,
		m.storedQueries,
		m.screeningRuns,
		m.verdictsTotal,
		m.diagramExports,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count, duration and in-flight requests. Requests are
// labelled by chi route pattern so path parameters do not explode the
// label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordSave counts a saved query and updates the stored total.
func (m *Metrics) RecordSave(stored int) {
	m.queriesSaved.Inc()
	m.storedQueries.Set(float64(stored))
}

// SetStored updates the stored total.
func (m *Metrics) SetStored(stored int) {
	m.storedQueries.Set(float64(stored))
}

// RecordScreening counts one run and its verdicts.
func (m *Metrics) RecordScreening(verdicts map[string]int) {
	m.screeningRuns.Inc()
	for v, n := range verdicts {
		m.verdictsTotal.WithLabelValues(v).Add(float64(n))
	}
}

// RecordDiagramExport counts an export call as "ok" or "error".
func (m *Metrics) RecordDiagramExport(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.diagramExports.WithLabelValues(status).Inc()
}
