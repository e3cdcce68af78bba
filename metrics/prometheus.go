package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder records events and latencies as Prometheus collectors.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the MonetizedMCP collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monetized_mcp",
			Name:      "events_total",
			Help:      "MonetizedMCP request counters",
		},
		[]string{"event", LabelOutcome, LabelPaymentMethod},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "monetized_mcp",
			Name:      "latency_seconds",
			Help:      "MonetizedMCP operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", LabelPaymentMethod},
	)

	reg.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"event":            name,
		LabelOutcome:       labels[LabelOutcome],
		LabelPaymentMethod: labels[LabelPaymentMethod],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation":        name,
		LabelPaymentMethod: labels[LabelPaymentMethod],
	}).Observe(d.Seconds())
}
