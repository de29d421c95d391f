// Package metrics exposes relay counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "findingrelay"

// Metrics holds the relay's collectors. The zero value is not usable; call New.
type Metrics struct {
	registry *prometheus.Registry

	findings *prometheus.CounterVec
	webhook  *prometheus.HistogramVec
}

// New creates a registry with the relay collectors and the Go runtime
// collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings processed, by result status.",
		}, []string{"status"}),
		webhook: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Latency of webhook POSTs, by delivery outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.findings,
		m.webhook,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Finding counts one processed finding under status.
func (m *Metrics) Finding(status string) {
	m.findings.WithLabelValues(status).Inc()
}

// Webhook records the latency of one webhook POST.
func (m *Metrics) Webhook(outcome string, d time.Duration) {
	m.webhook.WithLabelValues(outcome).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
