// Package metrics defines the Prometheus collectors shared by the CRM client
// core and the mock API. Collectors register with the default registry on
// package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crm"

// ── Client metrics ────────────────────────────────────────────────────────────

// StoreRequestsTotal counts store operations by outcome.
// Labels:
//   - store: "customers" or "tasks"
//   - op: fetch, get, create, update, update_status, delete
//   - result: succeeded, failed, rejected (validation or double submit)
var StoreRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "store_requests_total",
		Help:      "Total number of domain store operations, by outcome.",
	},
	[]string{"store", "op", "result"},
)

// StoreStaleResultsTotal counts fetch results dropped because a newer fetch
// had been dispatched on the same store.
var StoreStaleResultsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "store_stale_results_total",
		Help:      "Fetch results discarded because a newer fetch was dispatched.",
	},
	[]string{"store"},
)

// AuthAttemptsTotal counts login/register/restore attempts.
// Labels:
//   - op: login, register, restore
//   - result: succeeded, invalid_credentials, unavailable, rejected, superseded
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by outcome.",
	},
	[]string{"op", "result"},
)

// GatewayRequestDuration measures remote calls made by the HTTP gateways.
var GatewayRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "gateway_request_duration_seconds",
		Help:      "Duration of HTTP gateway requests, by route and status class.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "code"},
)

// ── Mock API metrics ──────────────────────────────────────────────────────────

// TaskStatusChangesTotal counts status changes applied through the API.
var TaskStatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mockapi",
		Name:      "task_status_changes_total",
		Help:      "Total number of task status changes, by new status.",
	},
	[]string{"status"},
)

// LoginsTotal counts API logins by result: success, rejected or error.
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mockapi",
		Name:      "logins_total",
		Help:      "Total number of login requests served, by result.",
	},
	[]string{"result"},
)
