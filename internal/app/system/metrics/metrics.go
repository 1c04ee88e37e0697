// Package metrics exposes request counters and latency histograms for
// Prometheus scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple handlers never clash
// on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SignIns         *prometheus.CounterVec
	Registrations   prometheus.Counter
	SeededUsers     prometheus.Counter
}

// New registers the app's collectors plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iptgram_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iptgram_http_request_duration_seconds",
				Help:    "Time taken to serve HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SignIns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iptgram_sign_ins_total",
				Help: "Password sign-in attempts by result",
			},
			[]string{"result"},
		),
		Registrations: f.NewCounter(
			prometheus.CounterOpts{
				Name: "iptgram_registrations_total",
				Help: "Total number of accounts registered",
			},
		),
		SeededUsers: f.NewCounter(
			prometheus.CounterOpts{
				Name: "iptgram_seeded_users_total",
				Help: "Users created by the startup seed",
			},
		),
	}
}

// Middleware counts requests and observes their latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		method := methodLabel(r.Method)
		m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	})
}

// methodLabel keeps the method label bounded; clients can send any token as
// a method.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
		http.MethodConnect, http.MethodTrace:
		return method
	}
	return "OTHER"
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
