package engine

import (
	"slices"

	"github.com/hailam/humanchess/internal/board"
)

// searchRoot searches every root candidate with a full window. ok is false
// when the depth was aborted, in which case move and score must be ignored.
func (e *Engine) searchRoot(pos *board.Position, candidates []board.Move, depth int) (board.Move, int, bool) {
	e.depth = depth

	var ttMove board.Move
	if entry, found := e.tt.Probe(pos.Hash); found {
		ttMove = entry.BestMove
	}

	alpha, beta := -Infinity, Infinity
	bestMove := board.NoMove
	for _, m := range e.orderer.Order(candidates, pos, ttMove, depth) {
		child := pos.Apply(m)
		score := -e.alphaBeta(&child, depth-1, -beta, -alpha)
		if e.stopping() {
			return board.NoMove, 0, false
		}
		if bestMove == board.NoMove || score > alpha {
			alpha = score
			bestMove = m
		}
	}

	e.tt.Store(pos.Hash, depth, alpha, TTExact, bestMove)
	return bestMove, alpha, true
}

// alphaBeta is a fail-hard negamax search with d plies remaining. Scores are
// from the side to move's point of view.
func (e *Engine) alphaBeta(pos *board.Position, d, alpha, beta int) int {
	if e.stopping() {
		return 0
	}
	e.nodes++

	var ttMove board.Move
	if entry, found := e.tt.Probe(pos.Hash); found {
		ttMove = entry.BestMove
		if int(entry.Depth) >= d {
			score := int(entry.Score)
			switch {
			case entry.Flag == TTExact:
				return score
			case entry.Flag == TTLowerBound && score >= beta:
				return beta
			case entry.Flag == TTUpperBound && score <= alpha:
				return alpha
			}
		}
	}

	if d <= 0 {
		return e.quiescence(pos, alpha, beta, 0)
	}

	inCheck := pos.InCheck(pos.SideToMove)
	if inCheck && !e.opts.SearchCheckEvasions {
		return -(MateScore - (MaxDepth - d))
	}

	moves, legal := e.candidates(pos)
	if len(moves) == 0 {
		if legal == 0 {
			return e.terminalScore(pos, e.depth-d)
		}
		return e.evaluate(pos)
	}

	bestMove := board.NoMove
	flag := TTUpperBound
	for _, m := range e.orderer.Order(moves, pos, ttMove, d) {
		child := pos.Apply(m)
		score := -e.alphaBeta(&child, d-1, -beta, -alpha)
		if e.stopping() {
			return 0
		}

		if score >= beta {
			e.orderer.UpdateKillers(m, d)
			e.orderer.UpdateHistory(m, d)
			e.tt.Store(pos.Hash, d, beta, TTLowerBound, m)
			return beta
		}
		if score > alpha {
			alpha = score
			bestMove = m
			flag = TTExact
		}
	}

	e.tt.Store(pos.Hash, d, alpha, flag, bestMove)
	return alpha
}

// quiescence resolves capture sequences below the horizon.
func (e *Engine) quiescence(pos *board.Position, alpha, beta, qply int) int {
	if e.stopping() {
		return 0
	}
	e.nodes++

	standPat := e.evaluate(pos)
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}
	if qply >= maxQuiescencePly {
		return alpha
	}

	captures := pos.Captures()
	slices.SortStableFunc(captures, func(a, b board.Move) int {
		return captureScore(pos, b) - captureScore(pos, a)
	})

	for _, m := range captures {
		child := pos.Apply(m)
		score := -e.quiescence(&child, -beta, -alpha, qply+1)
		if e.stopping() {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

func captureScore(pos *board.Position, m board.Move) int {
	return mvvLva(pos.CapturedBy(m), pos.PieceAt(m.From()).Type())
}

// evaluate returns the static evaluation from the side to move's point of view.
func (e *Engine) evaluate(pos *board.Position) int {
	score := e.eval.Evaluate(pos)
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// terminalScore scores a position without legal moves: mated sides prefer
// the longest path, stalemate is a draw.
func (e *Engine) terminalScore(pos *board.Position, ply int) int {
	if pos.IsCheckmate() {
		return -MateScore + ply
	}
	return 0
}

// principalVariation follows best moves through the transposition table.
func (e *Engine) principalVariation(pos board.Position, depth int) []board.Move {
	pv := make([]board.Move, 0, depth)
	seen := make(map[uint64]bool, depth)
	for len(pv) < depth {
		entry, found := e.tt.Probe(pos.Hash)
		if !found || entry.BestMove == board.NoMove || seen[pos.Hash] {
			break
		}
		if !slices.Contains(pos.LegalMoves(), entry.BestMove) {
			break
		}
		seen[pos.Hash] = true
		pv = append(pv, entry.BestMove)
		pos = pos.Apply(entry.BestMove)
	}
	return pv
}
