// Package metrics exposes Prometheus collectors for relay traffic and key issuance.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/media"
)

const namespace = "teleput"

// Metrics holds the relay collectors.
type Metrics struct {
	gatherer    prometheus.Gatherer
	requests    *prometheus.CounterVec
	sent        *prometheus.CounterVec
	sendErrors  *prometheus.CounterVec
	uploadBytes prometheus.Histogram
	issued      *prometheus.CounterVec
}

// New registers collectors, including Go runtime and process collectors, on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return MustNewMetrics(reg, reg)
}

// MustNewMetrics registers the relay collectors with reg and serves them from
// gatherer. Registration errors panic.
func MustNewMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "requests_total",
				Help:      "Relay HTTP requests by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "sent_total",
				Help:      "Messages delivered to the messaging platform by kind.",
			},
			[]string{"kind"},
		),
		sendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "send_errors_total",
				Help:      "Failed deliveries by platform failure reason.",
			},
			[]string{"reason"},
		),
		uploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_bytes",
				Help:      "Size of delivered attachments.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 9),
			},
		),
		issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bindings",
				Name:      "issued_total",
				Help:      "Keys issued by mode (first or renew).",
			},
			[]string{"mode"},
		),
	}
	reg.MustRegister(m.requests, m.sent, m.sendErrors, m.uploadBytes, m.issued)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest counts one relay request.
func (m *Metrics) ObserveRequest(endpoint, outcome string) {
	m.requests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveSend records a delivery attempt.
func (m *Metrics) ObserveSend(kind media.Kind, size int64, err error) {
	if err != nil {
		reason := string(channel.ReasonUnavailable)
		var de *channel.DeliveryError
		if errors.As(err, &de) {
			reason = string(de.Reason)
		}
		m.sendErrors.WithLabelValues(reason).Inc()
		return
	}
	m.sent.WithLabelValues(kind.String()).Inc()
	if size > 0 {
		m.uploadBytes.Observe(float64(size))
	}
}

// KeyIssued counts a key written by the binding store.
func (m *Metrics) KeyIssued(renew bool) {
	mode := "first"
	if renew {
		mode = "renew"
	}
	m.issued.WithLabelValues(mode).Inc()
}
