// Package metrics holds the Prometheus collectors for the user service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label for successful operations.
const OutcomeSuccess = "success"

// AuthOperations counts register, login and lookup calls by outcome. The
// outcome is "success" or the error kind.
// Use Register to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usersvc_auth_operations_total",
		Help: "Total number of account operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// TokensIssued counts signed session tokens.
var TokensIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "usersvc_tokens_issued_total",
		Help: "Total number of session tokens issued",
	},
)

// EventPublishFailures counts user events that could not be published.
var EventPublishFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usersvc_event_publish_failures_total",
		Help: "Total number of user events that failed to publish",
	},
	[]string{"event"},
)

// TokenRejections counts requests refused by the bearer-token middleware.
var TokenRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usersvc_token_rejections_total",
		Help: "Total number of requests rejected for a missing or invalid bearer token",
	},
	[]string{"reason"},
)

// Register registers the package collectors with reg.
// Panics if registration fails (following prometheus convention).
func Register(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(TokensIssued)
	reg.MustRegister(EventPublishFailures)
	reg.MustRegister(TokenRejections)
}
