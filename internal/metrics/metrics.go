package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Import job outcomes as observed by the registration coordinator.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
)

// Metrics holds the Prometheus metrics for the symbol service
type Metrics struct {
	RegistrationsTotal    prometheus.Counter
	DuplicatesTotal       prometheus.Counter
	DispatchFailuresTotal prometheus.Counter
	ImportResultsTotal    *prometheus.CounterVec
	WindowQueriesTotal    prometheus.Counter
}

// New registers and returns the service metrics against the given registerer
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RegistrationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbolsvc_registrations_total",
			Help: "Symbols registered (rows created)",
		}),
		DuplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbolsvc_duplicate_registrations_total",
			Help: "Registration attempts rejected because the symbol already existed",
		}),
		DispatchFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbolsvc_import_dispatch_failures_total",
			Help: "Initial import submissions that failed at the broker",
		}),
		ImportResultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "symbolsvc_import_results_total",
			Help: "Initial import job outcomes as observed after submission (by outcome)",
		}, []string{"outcome"}),
		WindowQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbolsvc_window_queries_total",
			Help: "Time-window aggregate queries served",
		}),
	}

	reg.MustRegister(
		m.RegistrationsTotal,
		m.DuplicatesTotal,
		m.DispatchFailuresTotal,
		m.ImportResultsTotal,
		m.WindowQueriesTotal,
	)

	return m
}
