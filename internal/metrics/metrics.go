// Package metrics exposes the shell's Prometheus metrics. All methods are
// safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the shell.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tabs
	TabsOpen prometheus.Gauge

	// Content blocker
	FilterDecisions *prometheus.CounterVec
	FilterRefreshes *prometheus.CounterVec
	FilterRules     prometheus.Gauge

	// Notifications
	EventClients prometheus.Gauge
}

// New creates the metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cortex_http_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		TabsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_tabs_open",
			Help: "Number of open tabs",
		}),
		FilterDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_filter_decisions_total",
				Help: "Network requests seen by the content blocker",
			},
			[]string{"decision"},
		),
		FilterRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_filter_refreshes_total",
				Help: "Content blocker refresh outcomes",
			},
			[]string{"result"},
		),
		FilterRules: f.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_filter_rules",
			Help: "Rules in the active filter set",
		}),
		EventClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_event_clients",
			Help: "Connected notification clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObserveDecision(blocked bool) {
	if m == nil {
		return
	}
	if blocked {
		m.FilterDecisions.WithLabelValues("blocked").Inc()
		return
	}
	m.FilterDecisions.WithLabelValues("allowed").Inc()
}

// ObserveRefresh records a blocker refresh. result is "fetched", "loaded" or
// "failed"; rules is the size of the active set afterwards.
func (m *Metrics) ObserveRefresh(result string, rules int) {
	if m == nil {
		return
	}
	m.FilterRefreshes.WithLabelValues(result).Inc()
	m.FilterRules.Set(float64(rules))
}

func (m *Metrics) SetTabs(n int) {
	if m == nil {
		return
	}
	m.TabsOpen.Set(float64(n))
}

func (m *Metrics) SetEventClients(n int) {
	if m == nil {
		return
	}
	m.EventClients.Set(float64(n))
}
