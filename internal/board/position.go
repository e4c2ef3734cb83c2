package board

import (
	"fmt"
	"strings"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return cr&castleRight(c, kingSide) != 0
}

func castleRight(c Color, kingSide bool) CastlingRights {
	r := WhiteQueenSideCastle
	if kingSide {
		r = WhiteKingSideCastle
	}
	if c == Black {
		r <<= 2
	}
	return r
}

// rookCornerRights maps a rook's original corner to the right it guards.
var rookCornerRights = map[Square]CastlingRights{
	A1: WhiteQueenSideCastle,
	H1: WhiteKingSideCastle,
	A8: BlackQueenSideCastle,
	H8: BlackKingSideCastle,
}

// Position is a complete chess position. It is a plain value: Apply returns
// a fresh copy and never touches the receiver.
type Position struct {
	// Kinds[pt] holds every piece of type pt regardless of color; Kinds[0] is unused.
	Kinds  [7]Bitboard
	Colors [2]Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // target square, NoSquare if none
	HalfMoveClock  int
	FullMoveNumber int

	// Hash is the Zobrist fingerprint of placement, side, castling and en passant.
	Hash uint64
}

// NewPosition returns the standard starting position.
func NewPosition() Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Occupied returns every occupied square.
func (p *Position) Occupied() Bitboard {
	return p.Colors[White] | p.Colors[Black]
}

// Pieces returns the squares holding pieces of type pt and color c.
func (p *Position) Pieces(c Color, pt PieceType) Bitboard {
	return p.Kinds[pt] & p.Colors[c]
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	var c Color
	switch {
	case p.Colors[White]&bb != 0:
		c = White
	case p.Colors[Black]&bb != 0:
		c = Black
	default:
		return NoPiece
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Kinds[pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Occupied()&SquareBB(sq) == 0
}

// KingSquare returns the square of c's king, NoSquare if it has none.
func (p *Position) KingSquare(c Color) Square {
	return p.Pieces(c, King).LSB()
}

func (p *Position) put(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	bb := SquareBB(sq)
	p.Kinds[piece.Type()] |= bb
	p.Colors[piece.Color()] |= bb
}

func (p *Position) remove(sq Square) Piece {
	piece := p.PieceAt(sq)
	if piece == NoPiece {
		return NoPiece
	}
	bb := SquareBB(sq)
	p.Kinds[piece.Type()] &^= bb
	p.Colors[piece.Color()] &^= bb
	return piece
}

// CapturedBy returns the kind of piece m would capture, NoPieceType for a
// quiet move. En passant captures report Pawn.
func (p *Position) CapturedBy(m Move) PieceType {
	if victim := p.PieceAt(m.To()); victim != NoPiece {
		return victim.Type()
	}
	if p.isEnPassant(m) {
		return Pawn
	}
	return NoPieceType
}

func (p *Position) isEnPassant(m Move) bool {
	return p.EnPassant != NoSquare && m.To() == p.EnPassant &&
		m.From().File() != m.To().File() &&
		p.Kinds[Pawn]&SquareBB(m.From()) != 0
}

// Apply plays m and returns the resulting position. The receiver is left
// untouched. A move whose origin square is empty yields an unchanged copy.
//
// Pawns reaching the last rank become the encoded promotion piece, or a queen
// when none is encoded. Rook captures do not revoke castling rights; only
// moves of the king or of a rook leaving its corner do.
func (p *Position) Apply(m Move) Position {
	next := *p
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return next
	}
	us, pt := piece.Color(), piece.Type()

	captured := next.remove(to)
	if p.isEnPassant(m) {
		behind := to - 8
		if us == Black {
			behind = to + 8
		}
		captured = next.remove(behind)
	}

	next.remove(from)
	placed := pt
	if pt == Pawn && (to.Rank() == 7 || to.Rank() == 0) {
		placed = m.Promotion()
		if placed == NoPieceType || placed == Pawn || placed == King {
			placed = Queen
		}
	}
	next.put(NewPiece(placed, us), to)

	switch pt {
	case King:
		next.CastlingRights &^= castleRight(us, true) | castleRight(us, false)
		if d := int(to) - int(from); d == 2 || d == -2 {
			rookFrom, rookTo := to+1, to-1
			if d < 0 {
				rookFrom, rookTo = to-2, to+1
			}
			if rook := next.remove(rookFrom); rook != NoPiece {
				next.put(rook, rookTo)
			}
		}
	case Rook:
		next.CastlingRights &^= rookCornerRights[from]
	}

	next.EnPassant = NoSquare
	if pt == Pawn && (int(to)-int(from) == 16 || int(from)-int(to) == 16) {
		next.EnPassant = (from + to) / 2
	}

	if pt == Pawn || captured != NoPiece {
		next.HalfMoveClock = 0
	} else {
		next.HalfMoveClock++
	}
	if us == Black {
		next.FullMoveNumber++
	}

	next.SideToMove = us.Other()
	next.Hash = next.ComputeHash()
	return next
}

// Material returns the material balance, positive when White is ahead.
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += p.Pieces(White, pt).PopCount() * PieceValue[pt]
		score -= p.Pieces(Black, pt).PopCount() * PieceValue[pt]
	}
	return score
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.FEN())
	fmt.Fprintf(&sb, "Key: %016X\n", p.Hash)
	return sb.String()
}
