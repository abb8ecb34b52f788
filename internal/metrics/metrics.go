package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statusbot"

// Results recorded in statusbot_alerts_total.
const (
	ResultPublished     = "published"
	ResultSkipped       = "skipped"
	ResultTemplateError = "template_error"
	ResultPublishError  = "publish_error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	alerts          *prometheus.CounterVec
	branches        *prometheus.CounterVec
	publishDuration prometheus.Histogram
	decodeErrors    prometheus.Counter
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts handled, by kind and result.",
		}, []string{"kind", "result"}),
		branches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_branch_total",
			Help:      "Template resolutions, by the rule that selected the template.",
		}, []string{"branch"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent in the outbound publisher.",
			Buckets:   prometheus.DefBuckets,
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Alert requests rejected because the body could not be decoded.",
		}),
	}
	m.registry.MustRegister(
		m.alerts,
		m.branches,
		m.publishDuration,
		m.decodeErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Alert counts one handled alert.
func (m *Metrics) Alert(kind, result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(kind, result).Inc()
}

// Branch counts one template resolution.
func (m *Metrics) Branch(branch string) {
	if m == nil {
		return
	}
	m.branches.WithLabelValues(branch).Inc()
}

// Publish observes the duration of one publisher call.
func (m *Metrics) Publish(d time.Duration) {
	if m == nil {
		return
	}
	m.publishDuration.Observe(d.Seconds())
}

// DecodeError counts one rejected request body.
func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
