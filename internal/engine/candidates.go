package engine

import "github.com/hailam/humanchess/internal/board"

// candidates returns the moves a human would consider in pos, along with the
// number of legal moves. Captures, pawn moves, king moves and checks are
// always kept. Any other move survives with probability CandidateRate percent.
func (e *Engine) candidates(pos *board.Position) ([]board.Move, int) {
	moves := pos.PseudoLegalMoves()
	kept := moves[:0]
	legal := 0
	for _, m := range moves {
		if !pos.IsLegal(m) {
			continue
		}
		legal++
		if e.considers(pos, m) {
			kept = append(kept, m)
		}
	}
	return kept, legal
}

// rootCandidates filters the root moves once per search. The root never
// comes up empty while a legal move exists.
func (e *Engine) rootCandidates(pos *board.Position, legal []board.Move) []board.Move {
	root := make([]board.Move, 0, len(legal))
	for _, m := range legal {
		if e.considers(pos, m) {
			root = append(root, m)
		}
	}
	if len(root) == 0 {
		return legal
	}
	return root
}

func (e *Engine) considers(pos *board.Position, m board.Move) bool {
	switch pos.PieceAt(m.From()).Type() {
	case board.Pawn, board.King:
		return true
	}
	if m.IsCapture(pos) || pos.GivesCheck(m) {
		return true
	}
	rate := e.opts.CandidateRate
	if rate >= 100 {
		return true
	}
	return rate > 0 && e.rng.Intn(100) < rate
}
