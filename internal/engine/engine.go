// Package engine implements the selective alpha-beta search.
package engine

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/hailam/humanchess/internal/board"
	"github.com/hailam/humanchess/internal/eval"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 10000

	// MaxDepth bounds the main search recursion. Quiescence adds at most
	// maxQuiescencePly frames on top, each holding one Position copy.
	MaxDepth         = 64
	maxQuiescencePly = 32
)

// Evaluator scores positions for the search. Evaluate returns centipawns
// from White's point of view; Signals feeds the time manager.
type Evaluator interface {
	Evaluate(pos *board.Position) int
	Signals(pos *board.Position) eval.Signals
}

// Options configures an Engine.
type Options struct {
	HashMB int
	Seed   uint64

	// CandidateRate is the percent chance that a quiet piece move which is
	// not a check makes the candidate list. 100 searches full width.
	CandidateRate int

	// MaxDepth caps iterative deepening when the limits carry no depth.
	MaxDepth int

	// SearchCheckEvasions searches positions in check instead of scoring
	// them with the mate-distance penalty.
	SearchCheckEvasions bool
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		HashMB:        16,
		Seed:          12345,
		CandidateRate: 30,
		MaxDepth:      MaxDepth,
	}
}

// State is the lifecycle of a search.
type State int32

const (
	StateIdle State = iota
	StateSearching
	StateDone
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateDone:
		return "done"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SearchInfo is reported after every completed depth.
type SearchInfo struct {
	Depth    int
	Score    int // side to move's point of view
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // permille
}

// SearchLimits specifies constraints on the search. A zero MoveTime means
// no clock when Depth is set; with neither set the budget is zero and the
// search answers at once.
type SearchLimits struct {
	Depth    int
	MoveTime time.Duration
	Infinite bool // search until stopped
}

// SearchResult is the outcome of one Search call.
type SearchResult struct {
	BestMove board.Move
	Score    int // White's point of view
	Relative int // side to move's point of view
	Depth    int // last completed depth, 0 if none
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	State    State
}

// Engine searches positions. An Engine owns its transposition table,
// killer and history tables and random source, so separate engines may run
// in parallel; a single Engine runs one search at a time.
type Engine struct {
	opts    Options
	eval    Evaluator
	tt      *TranspositionTable
	orderer *MoveOrderer
	tm      *TimeManager
	rng     *frand.RNG

	stop  atomic.Bool
	state atomic.Int32
	nodes uint64
	depth int // depth of the current iteration

	// Callbacks
	OnInfo func(SearchInfo)
}

// New creates an engine. A nil evaluator selects eval.New().
func New(ev Evaluator, opts Options) *Engine {
	if ev == nil {
		ev = eval.New()
	}
	if opts.MaxDepth <= 0 || opts.MaxDepth > MaxDepth {
		opts.MaxDepth = MaxDepth
	}
	if opts.HashMB <= 0 {
		opts.HashMB = DefaultOptions().HashMB
	}
	return &Engine{
		opts:    opts,
		eval:    ev,
		tt:      NewTranspositionTable(opts.HashMB),
		orderer: NewMoveOrderer(),
		tm:      NewTimeManager(),
		rng:     NewRNG(opts.Seed),
	}
}

// NewRNG returns the deterministic random stream for seed.
func NewRNG(seed uint64) *frand.RNG {
	key := make([]byte, 32)
	binary.LittleEndian.PutUint64(key, seed)
	return frand.NewCustom(key, 1024, 12)
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// SetCandidateRate changes the inclusion percentage for quiet piece moves.
func (e *Engine) SetCandidateRate(pct int) {
	e.opts.CandidateRate = min(max(pct, 0), 100)
}

// SetSeed changes the seed used by subsequent searches.
func (e *Engine) SetSeed(seed uint64) {
	e.opts.Seed = seed
}

// SetMaxDepth changes the default depth cap.
func (e *Engine) SetMaxDepth(depth int) {
	if depth <= 0 || depth > MaxDepth {
		depth = MaxDepth
	}
	e.opts.MaxDepth = depth
}

// SetSearchCheckEvasions toggles full search of positions in check.
func (e *Engine) SetSearchCheckEvasions(on bool) {
	e.opts.SearchCheckEvasions = on
}

// ResizeHash resizes the transposition table, keeping what fits.
func (e *Engine) ResizeHash(sizeMB int) {
	e.opts.HashMB = sizeMB
	e.tt.Resize(sizeMB)
}

// Clear forgets everything learned in previous searches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.orderer.Clear()
}

// Stop asks the running search to finish. It is safe to call from any goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// State returns the lifecycle state of the latest search.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// HashFull returns the permille of the transposition table in use.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Evaluate returns the static evaluation of a position from White's point of view.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.eval.Evaluate(pos)
}

// Search runs iterative deepening on pos until the limits are reached, the
// context is cancelled or Stop is called, and returns the deepest fully
// searched result. The returned move is legal whenever a legal move exists.
func (e *Engine) Search(ctx context.Context, pos board.Position, limits SearchLimits) SearchResult {
	e.stop.Store(false)
	e.state.Store(int32(StateSearching))
	e.nodes = 0
	e.rng = NewRNG(e.opts.Seed)
	e.orderer.NewSearch()
	e.tm.Init(limits, e.eval.Signals(&pos))

	release := context.AfterFunc(ctx, e.Stop)
	defer release()

	result := SearchResult{BestMove: board.NoMove}

	legal := pos.LegalMoves()
	if len(legal) == 0 {
		result.Relative = e.terminalScore(&pos, 0)
		result.Score = whitePOV(result.Relative, pos.SideToMove)
		result.Time = e.tm.Elapsed()
		result.State = StateDone
		e.state.Store(int32(StateDone))
		return result
	}
	result.BestMove = legal[0]

	maxDepth := e.opts.MaxDepth
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, MaxDepth)
	}

	root := e.rootCandidates(&pos, legal)
	stopped := false
	for depth := 1; depth <= maxDepth; depth++ {
		if e.stopping() || e.tm.PastOptimum() {
			stopped = true
			break
		}

		move, score, ok := e.searchRoot(&pos, root, depth)
		if !ok {
			stopped = true
			break
		}

		result.BestMove = move
		result.Relative = score
		result.Depth = depth
		result.PV = e.principalVariation(pos, depth)

		log.Debug().Int("depth", depth).Int("score", score).Uint64("nodes", e.nodes).
			Str("move", move.String()).Msg("depth-complete")

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    score,
				Nodes:    e.nodes,
				Time:     e.tm.Elapsed(),
				PV:       result.PV,
				HashFull: e.tt.HashFull(),
			})
		}
	}

	result.Score = whitePOV(result.Relative, pos.SideToMove)
	result.Nodes = e.nodes
	result.Time = e.tm.Elapsed()
	result.State = StateDone
	if stopped {
		result.State = StateStopped
	}
	e.state.Store(int32(result.State))
	return result
}

// stopping polls the stop flag and the hard time budget.
func (e *Engine) stopping() bool {
	if e.stop.Load() {
		return true
	}
	if e.tm.ShouldStop() {
		e.stop.Store(true)
		return true
	}
	return false
}

func whitePOV(score int, side board.Color) int {
	if side == board.Black {
		return -score
	}
	return score
}
