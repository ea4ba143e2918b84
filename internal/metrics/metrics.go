package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ShiftEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shift_events_total",
			Help: "Shift lifecycle events by kind (check_in, check_out, cash_movement) and outcome",
		},
		[]string{"event", "outcome"},
	)

	LateCheckInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shift_late_check_ins_total",
			Help: "Check-ins recorded with late minutes",
		},
	)

	ShiftChangeDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shift_change_requests_settled_total",
			Help: "Shift change requests settled by terminal status",
		},
		[]string{"status"},
	)

	AbsenceSweepMarkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "absence_sweep_marked_total",
			Help: "Schedule entries marked absent by the sweep",
		},
	)

	AbsenceSweepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "absence_sweep_errors_total",
			Help: "Sweep cycles that failed and were left for the next tick",
		},
	)

	PanicsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_panics_recovered_total",
			Help: "Handler panics turned into 500 responses",
		},
	)

	AbsenceSweepLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "absence_sweep_last_run_timestamp_seconds",
			Help: "Unix time of the last completed sweep cycle",
		},
	)
)

// Outcome labels a service call result for the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
