// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "goutguard"

var (
	// HTTPRequests counts handled requests by route, method and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by route, method and status code.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route and method
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Reschedules counts reminder reschedules by category and outcome
	Reschedules = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminder_reschedules_total",
		Help:      "Reminder reschedules, by category and outcome (ok, error, permission_denied, disabled).",
	}, []string{"category", "outcome"})

	// ScheduledTriggers is the number of triggers issued in the last reschedule of each category
	ScheduledTriggers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reminder_triggers",
		Help:      "Triggers issued by the most recent reschedule, by category.",
	}, []string{"category"})

	// PermissionDenials counts reschedules skipped because notifications are not permitted
	PermissionDenials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminder_permission_denials_total",
		Help:      "Reschedules skipped because notification permission was not granted.",
	})

	// Deliveries counts fired reminders by sink and outcome
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminder_deliveries_total",
		Help:      "Reminder deliveries, by sink and outcome.",
	}, []string{"sink", "outcome"})

	// DosesLogged counts appended dose events by source
	DosesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "doses_logged_total",
		Help:      "Dose events appended, by source (scheduled, take_now).",
	}, []string{"source"})
)
