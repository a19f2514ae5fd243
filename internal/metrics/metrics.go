// Package metrics holds the Prometheus collectors of the assistant. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gipl_assistant"

type Metrics struct {
	registry    *prometheus.Registry
	turns       *prometheus.CounterVec
	extractions *prometheus.CounterVec
	completion  prometheus.Histogram
	blobBytes   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by outcome (greeting, completion, error).",
		}, []string{"kind"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_extractions_total",
			Help:      "Document source extractions by source kind and outcome.",
		}, []string{"source", "outcome"}),
		completion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion service calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		blobBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "knowledge_blob_bytes",
			Help:      "Size of the current knowledge blob.",
		}),
	}
	m.registry.MustRegister(m.turns, m.extractions, m.completion, m.blobBytes)
	return m
}

func (m *Metrics) Turn(kind string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(kind).Inc()
}

func (m *Metrics) Extraction(source, outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveCompletion(d time.Duration) {
	if m == nil {
		return
	}
	m.completion.Observe(d.Seconds())
}

func (m *Metrics) BlobSize(n int) {
	if m == nil {
		return
	}
	m.blobBytes.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
