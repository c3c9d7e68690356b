// Package metrics exposes Prometheus metrics for csvexplorer.
//
// All collectors live on a private registry so tests can build as many
// instances as they like. Metrics implements core.Recorder, which is how the
// core package reports uploads, session actions and exports without
// importing Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/csvexplorer/internal/core"
)

const namespace = "csvexplorer"

// Metrics holds every collector the application records to.
type Metrics struct {
	registry *prometheus.Registry

	// httpRequests counts requests. Labels: method, route, status
	httpRequests *prometheus.CounterVec
	// httpDuration observes request latency. Labels: method, route
	httpDuration *prometheus.HistogramVec

	// uploads counts finished uploads. Labels: format, result (ok or error code)
	uploads *prometheus.CounterVec
	// uploadRows observes rows per successful upload.
	uploadRows prometheus.Histogram
	// uploadDuration observes parse time per upload. Labels: format
	uploadDuration *prometheus.HistogramVec

	// actions counts session actions. Labels: action, result
	actions *prometheus.CounterVec
	// exports counts downloads. Labels: format
	exports *prometheus.CounterVec
	// exportRows observes rows per export.
	exportRows prometheus.Histogram

	sessions prometheus.Gauge
}

var _ core.Recorder = (*Metrics)(nil)

// New creates a Metrics instance with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	rowBuckets := prometheus.ExponentialBuckets(10, 10, 6)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "total",
			Help:      "Finished uploads by format and result",
		}, []string{"format", "result"}),
		uploadRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "rows",
			Help:      "Rows per successful upload",
			Buckets:   rowBuckets,
		}),
		uploadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Time spent reading and parsing an upload",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "actions_total",
			Help:      "Session actions (filters, derivations, resets) by result",
		}, []string{"action", "result"}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "total",
			Help:      "Exports by format",
		}, []string{"format"}),
		exportRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows",
			Help:      "Rows per export",
			Buckets:   rowBuckets,
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Live sessions held in memory",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// UploadFinished implements core.Recorder.
func (m *Metrics) UploadFinished(format core.FileFormat, rows int, elapsed time.Duration, err error) {
	label := formatLabel(format)
	m.uploads.WithLabelValues(label, result(err)).Inc()
	m.uploadDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	if err == nil {
		m.uploadRows.Observe(float64(rows))
	}
}

// Action implements core.Recorder.
func (m *Metrics) Action(name string, err error) {
	m.actions.WithLabelValues(name, result(err)).Inc()
}

// Exported implements core.Recorder.
func (m *Metrics) Exported(format core.FileFormat, rows int) {
	m.exports.WithLabelValues(formatLabel(format)).Inc()
	m.exportRows.Observe(float64(rows))
}

// SessionsActive implements core.Recorder.
func (m *Metrics) SessionsActive(n int) {
	m.sessions.Set(float64(n))
}

// Middleware records request counts and latency per chi route pattern, so
// /api/columns/{column}/values is one series regardless of the column.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

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

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// result turns an error into a bounded label value: "ok", or the user-facing
// error code.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	return core.MapError(err).Code
}

func formatLabel(f core.FileFormat) string {
	if f == "" {
		return "unknown"
	}
	return string(f)
}
