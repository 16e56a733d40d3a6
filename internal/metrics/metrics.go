// Package metrics holds the Prometheus collectors for the passport daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeError  = "error"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celerix_passport_calls_total",
		Help: "Passport operations handled, by operation and outcome",
	}, []string{"operation", "outcome"})

	recordsDeployed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "celerix_passport_records_deployed_total",
		Help: "Total number of passport records deployed",
	})
)

// ObserveCall counts one operation with the given outcome.
func ObserveCall(operation, outcome string) {
	callsTotal.WithLabelValues(operation, outcome).Inc()
}

// IncrementRecordsDeployed increments the deployed records counter by 1.
func IncrementRecordsDeployed() {
	recordsDeployed.Inc()
}
