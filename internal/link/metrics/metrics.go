// Package metrics provides observability for the social link registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks link submissions, votes, and threshold crossings.
type Metrics struct {
	Submitted  *prometheus.CounterVec
	Votes      *prometheus.CounterVec
	Thresholds *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goodcompany_links_submitted_total",
			Help: "Total social links submitted by platform",
		}, []string{"platform"}),
		Votes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goodcompany_link_votes_total",
			Help: "Total link votes by kind and whether they counted",
		}, []string{"kind", "counted"}),
		Thresholds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goodcompany_link_threshold_crossings_total",
			Help: "Total link flag flips by flag",
		}, []string{"flag"}), // flag: "verified", "hidden"
	}
}

// IncSubmitted records a link submission.
func (m *Metrics) IncSubmitted(platform string) {
	if m != nil {
		m.Submitted.WithLabelValues(platform).Inc()
	}
}

// IncVote records a vote and whether it counted or was a repeat.
func (m *Metrics) IncVote(kind string, counted bool) {
	if m != nil {
		label := "false"
		if counted {
			label = "true"
		}
		m.Votes.WithLabelValues(kind, label).Inc()
	}
}

// IncThreshold records a flag flip.
func (m *Metrics) IncThreshold(flag string) {
	if m != nil {
		m.Thresholds.WithLabelValues(flag).Inc()
	}
}
