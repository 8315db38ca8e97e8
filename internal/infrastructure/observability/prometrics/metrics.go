package prometrics

import (
	"github.com/pasar-rakyat/kantin/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// NewCounter registers a prometheus counter vector and exposes it behind the
// vendor-neutral Counter port. Label keys are fixed at registration; calls
// supplying other keys are dropped by prometheus, so keep them aligned.
func NewCounter(reg prometheus.Registerer, name, help string, labelKeys ...string) observability.Counter {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: name, Help: help},
		labelKeys,
	)
	reg.MustRegister(vec)
	return &counter{vec: vec}
}

// NewHistogram registers a prometheus histogram vector behind the Histogram
// port. A nil buckets slice falls back to prometheus defaults.
func NewHistogram(reg prometheus.Registerer, name, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets},
		labelKeys,
	)
	reg.MustRegister(vec)
	return &histogram{vec: vec}
}

type counter struct {
	vec *prometheus.CounterVec
}

func (c *counter) Add(delta float64, labels ...observability.Label) {
	c.vec.With(toPromLabels(labels)).Add(delta)
}

type histogram struct {
	vec *prometheus.HistogramVec
}

func (h *histogram) Observe(value float64, labels ...observability.Label) {
	h.vec.With(toPromLabels(labels)).Observe(value)
}

func toPromLabels(labels []observability.Label) prometheus.Labels {
	out := make(prometheus.Labels, len(labels))
	for _, l := range labels {
		out[l.Key] = l.Value
	}
	return out
}
