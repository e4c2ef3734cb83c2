package engine

import (
	"time"

	"github.com/hailam/humanchess/internal/board"
	"github.com/hailam/humanchess/internal/eval"
)

// Clock holds the time control state sent by a GUI.
type Clock struct {
	Time      [2]time.Duration // remaining time per color
	Inc       [2]time.Duration // increment per color
	MovesToGo int              // moves until next time control (0 = sudden death)
}

// AllocateMoveTime turns a game clock into a time budget for one move.
func AllocateMoveTime(c Clock, us board.Color) time.Duration {
	timeLeft := c.Time[us]
	if timeLeft <= 0 {
		return 0
	}

	mtg := c.MovesToGo
	if mtg <= 0 {
		mtg = 30
	}

	budget := timeLeft/time.Duration(mtg) + c.Inc[us]*9/10
	if limit := timeLeft * 8 / 10; budget > limit {
		budget = limit
	}
	return budget
}

// Complexity scales thinking time the way a player would: longer with an
// unsafe king, a material imbalance or passed pawns, shorter in the opening.
func Complexity(sig eval.Signals) float64 {
	c := 1.0
	if sig.KingSafetyConcern {
		c += 0.5
	}
	if sig.MaterialImbalance > 200 || sig.MaterialImbalance < -200 {
		c += 0.3
	}
	if sig.PassedPawns {
		c += 0.3
	}
	if sig.Opening {
		c *= 0.7
	}
	return c
}

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime time.Duration // soft budget, checked between depths
	maximumTime time.Duration // hard budget, checked at every node
	limited     bool
	startTime   time.Time
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init starts the clock for a new search. A search with neither a depth
// nor a move time gets a zero budget.
func (tm *TimeManager) Init(limits SearchLimits, sig eval.Signals) {
	tm.startTime = time.Now()
	tm.limited = !limits.Infinite && (limits.MoveTime > 0 || limits.Depth <= 0)
	if !tm.limited {
		return
	}

	tm.maximumTime = max(limits.MoveTime, 0)
	tm.optimumTime = time.Duration(float64(tm.maximumTime) / 2 * Complexity(sig))
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the soft budget.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the hard budget.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// Limited reports whether the search runs against a clock at all.
func (tm *TimeManager) Limited() bool {
	return tm.limited
}

// ShouldStop returns true once the hard budget is spent.
func (tm *TimeManager) ShouldStop() bool {
	return tm.limited && tm.Elapsed() >= tm.maximumTime
}

// PastOptimum returns true once the soft budget is spent.
func (tm *TimeManager) PastOptimum() bool {
	return tm.limited && tm.Elapsed() >= tm.optimumTime
}
