package engine

import (
	"slices"

	"github.com/hailam/humanchess/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore  = 10000000 // TT move gets highest priority
	CaptureBase  = 1000000  // Base score for captures
	KillerScore1 = 900000   // First killer move
	KillerScore2 = 800000   // Second killer move

	// historyLimit triggers halving of the whole history table.
	historyLimit = 400000
)

// MoveOrderer keeps the killer and history tables of one engine.
type MoveOrderer struct {
	// killers[d] holds the last two moves that caused a cutoff with d plies left.
	killers [MaxDepth + 1][2]board.Move

	// history is indexed by [from][to].
	history [64][64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// NewSearch forgets the killers and ages the history scores.
func (mo *MoveOrderer) NewSearch() {
	mo.killers = [MaxDepth + 1][2]board.Move{}
	mo.ageHistory()
}

// Clear resets both tables.
func (mo *MoveOrderer) Clear() {
	mo.killers = [MaxDepth + 1][2]board.Move{}
	mo.history = [64][64]int{}
}

func (mo *MoveOrderer) ageHistory() {
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// mvvLva ranks a capture by victim value times ten minus attacker value.
func mvvLva(victim, attacker board.PieceType) int {
	return board.PieceValue[victim]*10 - board.PieceValue[attacker]
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m, ttMove board.Move, depth int) int {
	if m == ttMove {
		return TTMoveScore
	}

	if victim := pos.CapturedBy(m); victim != board.NoPieceType {
		return CaptureBase + mvvLva(victim, pos.PieceAt(m.From()).Type())
	}

	if depth >= 0 && depth <= MaxDepth {
		if m == mo.killers[depth][0] {
			return KillerScore1
		}
		if m == mo.killers[depth][1] {
			return KillerScore2
		}
	}

	return mo.history[m.From()][m.To()]
}

// Order returns the moves sorted best first: the TT move, captures by
// MVV-LVA, the killers for depth, then the rest by history score. The input
// slice is not modified.
func (mo *MoveOrderer) Order(moves []board.Move, pos *board.Position, ttMove board.Move, depth int) []board.Move {
	type scored struct {
		move  board.Move
		score int
	}
	list := make([]scored, len(moves))
	for i, m := range moves {
		list[i] = scored{m, mo.scoreMove(pos, m, ttMove, depth)}
	}
	slices.SortStableFunc(list, func(a, b scored) int {
		return b.score - a.score
	})

	ordered := make([]board.Move, len(list))
	for i, s := range list {
		ordered[i] = s.move
	}
	return ordered
}

// UpdateKillers records a move that caused a beta cutoff with depth plies left.
func (mo *MoveOrderer) UpdateKillers(m board.Move, depth int) {
	if depth < 0 || depth > MaxDepth {
		return
	}
	if mo.killers[depth][0] != m {
		mo.killers[depth][1] = mo.killers[depth][0]
		mo.killers[depth][0] = m
	}
}

// UpdateHistory adds depth squared to the move's history score and halves
// the table once any score passes historyLimit.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	h := &mo.history[m.From()][m.To()]
	*h += depth * depth
	if *h > historyLimit {
		mo.ageHistory()
	}
}

// Killers returns the killer moves for a depth.
func (mo *MoveOrderer) Killers(depth int) [2]board.Move {
	if depth < 0 || depth > MaxDepth {
		return [2]board.Move{}
	}
	return mo.killers[depth]
}

// HistoryScore returns the history score for a move.
func (mo *MoveOrderer) HistoryScore(m board.Move) int {
	return mo.history[m.From()][m.To()]
}
