package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	validationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdesk_validations_total",
		Help: "Total number of guarded operations evaluated, by resulting severity",
	}, []string{"severity"})
	violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdesk_violations_total",
		Help: "Total number of security violations recorded",
	}, []string{"type", "severity"})
	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdesk_rate_limited_total",
		Help: "Total number of operations refused by the rate limiter",
	}, []string{"operation", "resource"})
	blocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetdesk_blocks_total",
		Help: "Total number of identifiers temporarily blocked",
	})
	alertFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetdesk_alert_failures_total",
		Help: "Total number of critical alerts that could not be delivered",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(validationsTotal, violationsTotal, rateLimitedTotal, blocksTotal, alertFailuresTotal)
}

// IncValidation counts one evaluated operation.
func IncValidation(severity string) { validationsTotal.WithLabelValues(severity).Inc() }

// IncViolation counts one recorded violation.
func IncViolation(kind, severity string) { violationsTotal.WithLabelValues(kind, severity).Inc() }

// IncRateLimited counts one operation refused by the limiter.
func IncRateLimited(operation, resource string) {
	rateLimitedTotal.WithLabelValues(operation, resource).Inc()
}

// IncBlock counts one identifier block.
func IncBlock() { blocksTotal.Inc() }

// IncAlertFailure counts one undelivered alert.
func IncAlertFailure() { alertFailuresTotal.Inc() }
