package board

// castling describes one castling option: the squares that must be empty and
// the squares the king stands on, crosses or lands on.
type castling struct {
	right      CastlingRights
	king, to   Square
	rook       Square
	empty      Bitboard
	unattacked [3]Square
}

var castlings = [2][2]castling{
	White: {
		{WhiteKingSideCastle, E1, G1, H1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
		{WhiteQueenSideCastle, E1, C1, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, H8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
		{BlackQueenSideCastle, E8, C8, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
	},
}

// PseudoLegalMoves returns every move obeying piece movement rules for the
// side to move. Moves may leave the mover's own king in check.
func (p *Position) PseudoLegalMoves() []Move {
	moves := make([]Move, 0, 48)
	us := p.SideToMove
	occupied := p.Occupied()
	targets := ^p.Colors[us]

	moves = p.appendPawnMoves(moves, us, occupied)

	for pt := Knight; pt <= King; pt++ {
		pieces := p.Pieces(us, pt)
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := AttacksFrom(pt, us, from, occupied) & targets
			for attacks != 0 {
				moves = append(moves, NewMove(from, attacks.PopLSB()))
			}
		}
	}

	return p.appendCastlingMoves(moves, us, occupied)
}

func (p *Position) appendPawnMoves(moves []Move, us Color, occupied Bitboard) []Move {
	pawns := p.Pieces(us, Pawn)
	enemies := p.Colors[us.Other()]
	if p.EnPassant != NoSquare {
		enemies |= SquareBB(p.EnPassant)
	}

	pushDir, startRank, lastRank := 8, 1, 7
	if us == Black {
		pushDir, startRank, lastRank = -8, 6, 0
	}

	for pawns != 0 {
		from := pawns.PopLSB()
		if from.Rank() == lastRank {
			continue
		}

		one := Square(int(from) + pushDir)
		if !occupied.IsSet(one) {
			moves = appendPawnMove(moves, from, one, lastRank)
			two := Square(int(one) + pushDir)
			if from.Rank() == startRank && !occupied.IsSet(two) {
				moves = append(moves, NewMove(from, two))
			}
		}

		attacks := pawnAttacks[us][from] & enemies
		for attacks != 0 {
			moves = appendPawnMove(moves, from, attacks.PopLSB(), lastRank)
		}
	}
	return moves
}

// appendPawnMove adds all four promotions when the pawn lands on its last rank.
func appendPawnMove(moves []Move, from, to Square, lastRank int) []Move {
	if to.Rank() != lastRank {
		return append(moves, NewMove(from, to))
	}
	return append(moves,
		NewPromotion(from, to, Queen),
		NewPromotion(from, to, Rook),
		NewPromotion(from, to, Bishop),
		NewPromotion(from, to, Knight),
	)
}

// appendCastlingMoves requires the right, the rook on its corner, empty
// squares between them and no attacked square on the king's path.
func (p *Position) appendCastlingMoves(moves []Move, us Color, occupied Bitboard) []Move {
	them := us.Other()
	for _, c := range castlings[us] {
		if p.CastlingRights&c.right == 0 || occupied&c.empty != 0 {
			continue
		}
		if !p.Pieces(us, King).IsSet(c.king) || !p.Pieces(us, Rook).IsSet(c.rook) {
			continue
		}
		if p.IsAttacked(c.unattacked[0], them) || p.IsAttacked(c.unattacked[1], them) || p.IsAttacked(c.unattacked[2], them) {
			continue
		}
		moves = append(moves, NewMove(c.king, c.to))
	}
	return moves
}

// IsLegal applies m and reports whether the mover's king is safe afterwards.
func (p *Position) IsLegal(m Move) bool {
	next := p.Apply(m)
	return !next.InCheck(p.SideToMove)
}

// LegalMoves generates pseudo-legal moves once and filters them once.
func (p *Position) LegalMoves() []Move {
	moves := p.PseudoLegalMoves()
	legal := moves[:0]
	for _, m := range moves {
		if p.IsLegal(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// Captures returns the legal capturing moves, en passant included.
func (p *Position) Captures() []Move {
	moves := p.PseudoLegalMoves()
	captures := moves[:0]
	for _, m := range moves {
		if p.CapturedBy(m) != NoPieceType && p.IsLegal(m) {
			captures = append(captures, m)
		}
	}
	return captures
}

// GivesCheck reports whether m leaves the opponent in check.
func (p *Position) GivesCheck(m Move) bool {
	next := p.Apply(m)
	return next.InCheck(next.SideToMove)
}

// HasLegalMoves returns true if the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool {
	for _, m := range p.PseudoLegalMoves() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck(p.SideToMove) && !p.HasLegalMoves()
}

// IsStalemate returns true if the side to move has no moves but is not in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck(p.SideToMove) && !p.HasLegalMoves()
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return int64(len(moves))
	}
	var nodes int64
	for _, m := range moves {
		next := p.Apply(m)
		nodes += next.Perft(depth - 1)
	}
	return nodes
}
