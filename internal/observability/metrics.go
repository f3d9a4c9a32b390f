// Package observability exposes Prometheus metrics for the HTTP
// surface and the payment flow.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	PaymentsConfirmed prometheus.Counter
	PaymentsReplayed  prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcourier_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookcourier_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PaymentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookcourier_payments_confirmed_total",
			Help: "Checkout sessions reconciled into paid orders.",
		}),
		PaymentsReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookcourier_payments_replayed_total",
			Help: "Duplicate payment confirmations absorbed by the compare-and-set.",
		}),
	}
	registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.PaymentsConfirmed, m.PaymentsReplayed)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
