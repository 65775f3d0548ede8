package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	fetches       *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	discarded     prometheus.Counter
}

// newMetrics creates the inventory collectors and registers them on reg.
// A nil reg leaves the collectors unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_clusters_inventory_fetches_total",
			Help: "Number of regional cluster list reads",
		}, []string{"region"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_clusters_inventory_fetch_errors_total",
			Help: "Number of failed regional cluster list reads",
		}, []string{"region"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hub_clusters_inventory_fetch_duration_seconds",
			Help:    "Duration of regional cluster list reads",
			Buckets: prometheus.DefBuckets,
		}, []string{"region"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_clusters_inventory_superseded_results_total",
			Help: "Number of read results discarded because a newer read had already completed",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.fetchErrors, m.fetchDuration, m.discarded)
	}
	return m
}
