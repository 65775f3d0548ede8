package tagging

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	operations *prometheus.CounterVec
	batches    prometheus.Counter
}

// newMetrics creates the tagging collectors and registers them on reg.
// A nil reg leaves the collectors unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_clusters_tag_operations_total",
			Help: "Number of hub tag operations by action and outcome",
		}, []string{"action", "outcome"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_clusters_tag_batches_total",
			Help: "Number of batch tagging runs",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.batches)
	}
	return m
}

func (m *metrics) record(tag bool, outcome Outcome) {
	action := "tag"
	if !tag {
		action = "untag"
	}
	m.operations.WithLabelValues(action, outcome.String()).Inc()
}
