// Package metrics exposes the Prometheus collectors of the tournament engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerOperations counts committed balance changes by kind and reason.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Committed balance changes by kind and reason.",
}, []string{"kind", "reason"})

// LedgerRejections counts debits refused for insufficient funds.
var LedgerRejections = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "ledger",
	Name:      "insufficient_funds_total",
	Help:      "Debits refused because the balance was too low.",
})

// PointsPurchased tracks points sold through purchases.
var PointsPurchased = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "ledger",
	Name:      "points_purchased_total",
	Help:      "Points credited by purchases.",
})

var AttemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "session",
	Name:      "attempts_started_total",
	Help:      "Attempts started (entry fee paid).",
})

var AttemptsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "session",
	Name:      "attempts_completed_total",
	Help:      "Attempts whose completion was recorded.",
})

// AttemptDuration observes recorded completion times.
var AttemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "dailymaze",
	Subsystem: "session",
	Name:      "attempt_seconds",
	Help:      "Recorded maze completion times in seconds.",
	Buckets:   []float64{10, 20, 30, 45, 60, 90, 120, 180, 300, 600},
})

// MazesGenerated counts mazes this process generated and persisted.
var MazesGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "maze",
	Name:      "generated_total",
	Help:      "Daily mazes generated and stored by this process.",
})

// Settlements counts settlement outcomes: paid, empty, skipped or failed.
var Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "settlement",
	Name:      "runs_total",
	Help:      "Settlement runs by outcome.",
}, []string{"outcome"})

// PrizePointsPaid tracks points credited to winners.
var PrizePointsPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dailymaze",
	Subsystem: "settlement",
	Name:      "prize_points_total",
	Help:      "Points paid to daily winners.",
})

// FeedSubscribers tracks open standings feed subscriptions.
var FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "dailymaze",
	Subsystem: "ranking",
	Name:      "feed_subscribers",
	Help:      "Open standings feed subscriptions.",
})
