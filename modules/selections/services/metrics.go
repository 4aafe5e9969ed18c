package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectionWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "selections",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of selection write conflicts broken down by kind.",
	}, []string{"kind"})

	selectionMutationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "selections",
		Subsystem: "write",
		Name:      "retries_total",
		Help:      "Total number of ordered-mutation transactions re-run after an isolation abort.",
	})
)

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	selectionWriteConflicts.WithLabelValues(kind).Inc()
}

func recordMutationRetry() {
	selectionMutationRetries.Inc()
}
