package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	estimationWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estimation",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of estimation write conflicts broken down by kind.",
	}, []string{"kind"})

	estimationMutationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "estimation",
		Subsystem: "write",
		Name:      "retries_total",
		Help:      "Total number of ordered-mutation transactions re-run after an isolation abort.",
	})

	estimationImportGroups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estimation",
		Subsystem: "import",
		Name:      "groups_total",
		Help:      "Total number of import groups broken down by outcome.",
	}, []string{"outcome"})
)

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	estimationWriteConflicts.WithLabelValues(kind).Inc()
}

func recordMutationRetry() {
	estimationMutationRetries.Inc()
}

func recordImportGroup(outcome string) {
	estimationImportGroups.WithLabelValues(outcome).Inc()
}
