package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stateUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtprov_state_updates_total",
		Help: "Total number of version state update attempts by status.",
	}, []string{"status"})

	stateRecoveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gtprov_state_recoveries_total",
		Help: "Total number of times state was recovered from the backup file.",
	})

	persistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gtprov_state_persist_duration_seconds",
		Help:    "Duration of version state update operations including persistence.",
		Buckets: prometheus.DefBuckets,
	})
)
