package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline.
type Metrics struct {
	Tracked         prometheus.Counter
	Sampled         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
	BreakerState    prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Tracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goodcompany_audit_tracked_total",
			Help: "Total number of audit events successfully persisted",
		}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goodcompany_audit_sampled_total",
			Help: "Total number of audit events dropped by sampling",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goodcompany_audit_dropped_total",
			Help: "Total number of audit events dropped by a full buffer or open circuit breaker",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goodcompany_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goodcompany_audit_circuit_breaker_state",
			Help: "Audit store circuit breaker state (0=closed, 1=open)",
		}),
	}
}
