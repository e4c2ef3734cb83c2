package board

// Pre-computed attack tables for the jumping pieces.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]
)

type direction struct{ df, dr int }

var (
	bishopDirections = [4]direction{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDirections   = [4]direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&NotFileA | (bb<<15)&NotFileH |
			(bb>>17)&NotFileH | (bb>>15)&NotFileA |
			(bb<<10)&NotFileAB | (bb<<6)&NotFileGH |
			(bb>>10)&NotFileGH | (bb>>6)&NotFileAB

		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

// rays walks each direction from sq until the board edge or the first
// occupied square, which is included.
func rays(sq Square, occupied Bitboard, dirs *[4]direction) Bitboard {
	var attacks Bitboard
	file, rank := sq.File(), sq.Rank()
	for _, d := range dirs {
		for f, r := file+d.df, rank+d.dr; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d.df, r+d.dr {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occupied&s != 0 {
				break
			}
		}
	}
	return attacks
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return rays(sq, occupied, &bishopDirections)
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return rays(sq, occupied, &rookDirections)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// AttacksFrom returns the squares a piece of kind pt and color c on sq
// attacks, given the occupancy.
func AttacksFrom(pt PieceType, c Color, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return pawnAttacks[c][sq]
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return Empty
}

// IsAttacked reports whether any piece of color by attacks sq. Pawns,
// knights and the king are tried before the sliders.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	if pawnAttacks[by.Other()][sq]&p.Pieces(by, Pawn) != 0 {
		return true
	}
	if knightAttacks[sq]&p.Pieces(by, Knight) != 0 {
		return true
	}
	if kingAttacks[sq]&p.Pieces(by, King) != 0 {
		return true
	}
	occupied := p.Occupied()
	queens := p.Pieces(by, Queen)
	if diag := p.Pieces(by, Bishop) | queens; diag != 0 && BishopAttacks(sq, occupied)&diag != 0 {
		return true
	}
	if lines := p.Pieces(by, Rook) | queens; lines != 0 && RookAttacks(sq, occupied)&lines != 0 {
		return true
	}
	return false
}

// InCheck reports whether c's king is attacked. A missing king is never in check.
func (p *Position) InCheck(c Color) bool {
	ksq := p.KingSquare(c)
	if ksq == NoSquare {
		return false
	}
	return p.IsAttacked(ksq, c.Other())
}
