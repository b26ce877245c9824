package match

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// opsTotal counts engine calls by operation and outcome class.
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_engine_ops_total",
		Help: "Matching engine calls by operation and result",
	}, []string{"op", "result"})

	// opDuration tracks engine call latency including transaction retries.
	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matchd_engine_op_duration_seconds",
		Help:    "Matching engine call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"op"})

	// matchesFormed counts committed match transitions.
	matchesFormed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_matches_formed_total",
		Help: "Committed match transitions by target kind",
	}, []string{"target_kind"})

	// matchesDissolved counts matches undone by a reject.
	matchesDissolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchd_matches_dissolved_total",
		Help: "Matches demoted by a reject",
	})

	// activeMatches is the number of matched pairs, refreshed periodically.
	activeMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchd_active_matches",
		Help: "Mutually matched account pairs at the last refresh",
	})

	// txRetries counts transactions rerun after a transient failure.
	txRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_engine_tx_retries_total",
		Help: "Engine transactions retried after a transient failure",
	}, []string{"op"})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}
