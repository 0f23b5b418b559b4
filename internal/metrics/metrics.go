// ABOUTME: Prometheus counters for authentication and quota activity
// ABOUTME: Registered at startup and exposed on the /metrics endpoint

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Decision label values for quota counters.
const (
	DecisionAllowed   = "allowed"
	DecisionExhausted = "exhausted"
	DecisionDenied    = "auth_required"
)

// Logins counts login attempts by outcome.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vault_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"outcome"},
)

// Registrations counts registration attempts by outcome.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vault_registrations_total",
		Help: "Total number of registration attempts",
	},
	[]string{"outcome"},
)

// QuotaDecisions counts quota decisions by result.
var QuotaDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vault_quota_decisions_total",
		Help: "Total number of quota decisions",
	},
	[]string{"decision"},
)

// Register registers all vault-gateway metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func Register(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(Registrations)
	reg.MustRegister(QuotaDecisions)
}

// RecordLogin increments the login counter for the given outcome.
func RecordLogin(outcome string) {
	Logins.WithLabelValues(outcome).Inc()
}

// RecordRegistration increments the registration counter for the given outcome.
func RecordRegistration(outcome string) {
	Registrations.WithLabelValues(outcome).Inc()
}

// RecordQuotaDecision increments the quota decision counter.
func RecordQuotaDecision(decision string) {
	QuotaDecisions.WithLabelValues(decision).Inc()
}
