package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the reservation and settlement paths. Conflict counters track
// transactions that aborted on a fresh-read precondition, not substrate errors.
var (
	SquaresClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squares_claimed_total",
		Help: "Squares successfully claimed, including admin and random assignments.",
	})
	ClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squares_claim_conflicts_total",
		Help: "Claim attempts that lost a race for a cell.",
	})
	SquaresReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squares_released_total",
		Help: "Squares released or admin-cleared.",
	})
	PoolsLocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pools_locked_total",
		Help: "Pools locked with axis digits revealed.",
	})
	ScoresRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scores_recorded_total",
		Help: "Quarter scores recorded.",
	})
)
