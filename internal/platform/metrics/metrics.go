// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mma_ledger"

// ─── Journals ───────────────────────────────────────────────────────────────

var JournalOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "journal",
	Name:      "operations_total",
	Help:      "Journal mutations by operation and outcome.",
}, []string{"operation", "outcome"})

// ─── Rebuild queue ──────────────────────────────────────────────────────────

var RebuildQueuePending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "rebuild",
	Name:      "pending_accounts",
	Help:      "Accounts waiting for a running-balance rebuild.",
})

var RebuildInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "rebuild",
	Name:      "in_flight",
	Help:      "Running-balance rebuilds currently executing.",
})

var RebuildRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "rebuild",
	Name:      "runs_total",
	Help:      "Completed rebuilds by outcome.",
}, []string{"outcome"})

var RebuildRowsWritten = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "rebuild",
	Name:      "rows_written_total",
	Help:      "Running-balance rows rewritten by rebuilds.",
})

var RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "rebuild",
	Name:      "duration_seconds",
	Help:      "Time spent rebuilding one account.",
	Buckets:   prometheus.DefBuckets,
})

// ─── Integrity ──────────────────────────────────────────────────────────────

var IntegrityAccountsChecked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "integrity",
	Name:      "accounts_checked_total",
	Help:      "Accounts verified against recomputed balances.",
})

var IntegrityDiscrepancies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "integrity",
	Name:      "discrepancies_total",
	Help:      "Accounts whose cached balance differed from the computed one.",
})

var IntegrityRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "integrity",
	Name:      "repairs_total",
	Help:      "Repair attempts by outcome.",
}, []string{"outcome"})

var IntegrityCheckFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "integrity",
	Name:      "check_failures_total",
	Help:      "Accounts that could not be verified.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method and route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// ─── Observation ────────────────────────────────────────────────────────────

var ChangeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "changes",
	Name:      "subscribers",
	Help:      "Open change-feed subscriptions.",
})

var ChangesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "changes",
	Name:      "dropped_total",
	Help:      "Change sets not delivered because a subscriber was too slow.",
})
