package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for HandlerMetrics.Records.
const (
	OutcomeStored   = "stored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeFiltered = "filtered"
)

// HandlerMetrics holds the Prometheus metrics for a store handler.
type HandlerMetrics struct {
	Records *prometheus.CounterVec
}

// NewHandlerMetrics creates the metrics and registers them on reg.
// A nil reg leaves them unregistered. Handlers sharing a registerer share counters.
func NewHandlerMetrics(reg prometheus.Registerer) (*HandlerMetrics, error) {
	m := &HandlerMetrics{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mongolog",
			Subsystem: "handler",
			Name:      "records_total",
			Help:      "Total number of log records handled, by outcome.",
		}, []string{"outcome"}), // outcome: stored, rejected, failed, filtered
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(m.Records); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		m.Records = existing
	}
	return m, nil
}

// Observe counts one record with the given outcome. Safe on a nil receiver.
func (m *HandlerMetrics) Observe(outcome string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(outcome).Inc()
}
