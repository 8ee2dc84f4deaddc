// Package metrics provides observability for the endorsement module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks endorsement write volume and the recompute critical path.
type Metrics struct {
	Endorsed          *prometheus.CounterVec
	Retracted         prometheus.Counter
	RecomputeDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Endorsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goodcompany_endorsements_written_total",
			Help: "Total endorsement writes by kind",
		}, []string{"kind"}), // kind: "created", "updated"
		Retracted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goodcompany_endorsements_retracted_total",
			Help: "Total endorsements retracted",
		}),
		RecomputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goodcompany_score_recompute_duration_seconds",
			Help:    "Duration of score recomputation inside the write transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncEndorsed records an endorsement write.
func (m *Metrics) IncEndorsed(updated bool) {
	if m == nil {
		return
	}
	kind := "created"
	if updated {
		kind = "updated"
	}
	m.Endorsed.WithLabelValues(kind).Inc()
}

// IncRetracted records a retraction.
func (m *Metrics) IncRetracted() {
	if m != nil {
		m.Retracted.Inc()
	}
}

// ObserveRecompute records the recompute duration. Call with time.Now() at
// the start of the recomputation.
func (m *Metrics) ObserveRecompute(start time.Time) {
	if m != nil {
		m.RecomputeDuration.Observe(time.Since(start).Seconds())
	}
}
