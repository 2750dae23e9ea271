package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache-sync collectors. Labels are bounded enums (mutation kind, outcome,
// entity type, result), never ids or filter signatures.
var (
	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachesync_mutations_total",
			Help: "Resolved mutations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	mutationsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cachesync_mutations_inflight",
			Help: "Mutations dispatched upstream and not yet resolved.",
		},
	)

	invalidationInstructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachesync_invalidation_instructions_total",
			Help: "Invalidation instructions applied to the query store, by action.",
		},
		[]string{"action"},
	)

	periodicRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachesync_periodic_refresh_total",
			Help: "Periodic refresh attempts by entity type and result (ok, failed, skipped).",
		},
		[]string{"entity", "result"},
	)

	busEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachesync_bus_events_total",
			Help: "Invalidation events exchanged with peer instances, by direction.",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(mutationsTotal, mutationsInflight, invalidationInstructions, periodicRefreshTotal, busEventsTotal)
}
