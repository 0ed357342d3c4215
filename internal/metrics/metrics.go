package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reminder outcomes
const (
	OutcomeSent       = "sent"
	OutcomeFailed     = "failed"
	OutcomeAllPaid    = "all_paid"
	OutcomeConflict   = "claim_conflict"
	OutcomeClaimError = "claim_error"
)

// Metrics stores Prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	DBQueries        *prometheus.CounterVec
	DBLatency        *prometheus.HistogramVec
	ReminderTicks    prometheus.Counter
	ReminderOutcomes *prometheus.CounterVec
	OverviewLatency  prometheus.Histogram
	Errors           *prometheus.CounterVec
}

// New builds the collectors and registers them with reg
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DBQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total database statements by operation and outcome.",
		}, []string{"operation", "status"}),
		DBLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Latency distribution for database statements.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ReminderTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_ticks_total",
			Help:      "Total reminder scheduler ticks.",
		}),
		ReminderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_outcomes_total",
			Help:      "Reminder slot outcomes by trigger.",
		}, []string{"trigger", "outcome"}),
		OverviewLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overview_duration_seconds",
			Help:      "Latency distribution for monthly overview builds.",
			Buckets:   prometheus.DefBuckets,
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPLatency,
		m.DBQueries,
		m.DBLatency,
		m.ReminderTicks,
		m.ReminderOutcomes,
		m.OverviewLatency,
		m.Errors,
	)
	return m
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordDatabaseQuery records one database statement
func (m *Metrics) RecordDatabaseQuery(operation string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	m.DBQueries.WithLabelValues(operation, status).Inc()
	m.DBLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordTick counts a scheduler tick
func (m *Metrics) RecordTick() {
	if m == nil {
		return
	}
	m.ReminderTicks.Inc()
}

// RecordReminder counts a reminder slot outcome
func (m *Metrics) RecordReminder(trigger, outcome string) {
	if m == nil {
		return
	}
	m.ReminderOutcomes.WithLabelValues(trigger, outcome).Inc()
}

// RecordOverview observes an overview build
func (m *Metrics) RecordOverview(d time.Duration) {
	if m == nil {
		return
	}
	m.OverviewLatency.Observe(d.Seconds())
}

// RecordError counts an error for a component
func (m *Metrics) RecordError(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
