package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks executions of wrapped operations
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoker_attempts_total",
			Help: "Total number of attempts made for wrapped remote operations",
		},
		[]string{"operation"},
	)

	// OutcomesTotal tracks terminal outcomes of logical invocations
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoker_outcomes_total",
			Help: "Total number of logical invocations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// BackoffSeconds tracks time spent sleeping between attempts
	BackoffSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invoker_backoff_seconds",
			Help:    "Backoff delay before a retry in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 10},
		},
		[]string{"operation"},
	)

	// FalsePositivesTotal tracks classified false-positive limit errors
	FalsePositivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoker_false_positives_total",
			Help: "Total number of errors classified as false-positive limit errors",
		},
		[]string{"rule"},
	)

	// DiagnosticsRetained tracks entries currently held by the diagnostics store
	DiagnosticsRetained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invoker_diagnostics_retained",
			Help: "Classified errors currently retained in the diagnostics log",
		},
	)

	// NotificationsTotal tracks toasts rendered by kind and result
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoker_notifications_total",
			Help: "Total number of user notifications",
		},
		[]string{"kind", "result"},
	)

	// HandledErrorsTotal tracks errors passed through the generic handler
	HandledErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoker_handled_errors_total",
			Help: "Total number of errors handled by the generic error handler",
		},
		[]string{"kind"},
	)

	// MonitoringReportsTotal tracks forwards to the monitoring sink
	MonitoringReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoker_monitoring_reports_total",
			Help: "Total number of error reports forwarded to monitoring",
		},
		[]string{"status"},
	)
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeRecovered = "recovered"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)
