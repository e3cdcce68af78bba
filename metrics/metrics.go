// Package metrics records purchase outcomes and latencies.
package metrics

import "time"

// Recorder receives purchase events. Labels not known to an implementation are ignored.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Label keys understood by PrometheusRecorder.
const (
	LabelOutcome       = "outcome"
	LabelPaymentMethod = "payment_method"
)
