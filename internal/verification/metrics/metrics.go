// Package metrics provides observability for the verification module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks submission volume and decision outcomes and latency.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	DecisionOutcome  *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	DecisionTimeouts prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goodcompany_verification_submissions_total",
			Help: "Total artifact submissions by kind",
		}, []string{"kind"}), // kind: "document", "selfie"
		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goodcompany_verification_decisions_total",
			Help: "Total verification decisions by outcome",
		}, []string{"outcome"}), // outcome: "verified", "rejected", "timeout"
		DecisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goodcompany_verification_decision_duration_seconds",
			Help:    "Duration of decision collaborator calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		DecisionTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goodcompany_verification_decision_timeouts_total",
			Help: "Total decision collaborator calls that exceeded the deadline",
		}),
	}
}

// IncSubmission records an artifact submission.
func (m *Metrics) IncSubmission(kind string) {
	if m != nil {
		m.Submissions.WithLabelValues(kind).Inc()
	}
}

// IncOutcome records a decision outcome.
func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveDecision records the collaborator call duration. Call with
// time.Now() at the start of the call.
func (m *Metrics) ObserveDecision(start time.Time) {
	if m != nil {
		m.DecisionDuration.Observe(time.Since(start).Seconds())
	}
}

// IncTimeout records a collaborator deadline miss.
func (m *Metrics) IncTimeout() {
	if m != nil {
		m.DecisionTimeouts.Inc()
	}
}
