package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeRequeued  = "requeued"
	outcomeFailed    = "failed"
	outcomeRejected  = "rejected"
	outcomeSkipped   = "skipped"
)

var (
	// ManifestsTotal counts handled manifest requests by outcome.
	ManifestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer",
			Subsystem: "manifest",
			Name:      "requests_total",
			Help:      "Total number of manifest requests by outcome",
		},
		[]string{"outcome"},
	)

	// ParseDuration tracks fetch plus parse time in seconds.
	ParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "transfer",
			Subsystem: "manifest",
			Name:      "parse_duration_seconds",
			Help:      "Duration of manifest fetch and parse in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 30, 60, 300, 900, 3600},
		},
		[]string{"operation_kind"},
	)

	// UnitsParsed counts archive units written to Redis.
	UnitsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "transfer",
			Subsystem: "manifest",
			Name:      "units_total",
			Help:      "Total number of archive units parsed",
		},
	)

	// TasksInFlight is the number of operations being worked on.
	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "transfer",
			Subsystem: "manifest",
			Name:      "tasks_in_flight",
			Help:      "Number of manifest operations in process",
		},
	)
)
