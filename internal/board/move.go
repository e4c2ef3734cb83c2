package board

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned when a move string cannot be decoded.
var ErrInvalidMove = errors.New("invalid move")

// Move encodes a chess move in 16 bits:
// bits 0-5:   to square (0-63)
// bits 6-11:  from square (0-63)
// bits 12-14: promotion PieceType (0 = none)
//
// Castling and en passant are not flagged; Apply recognizes them from the
// moving piece and the squares.
type Move uint16

// NoMove represents the null move.
const NoMove Move = 0

// NewMove creates a move without a promotion choice.
func NewMove(from, to Square) Move {
	return Move(to) | Move(from)<<6
}

// NewPromotion creates a move promoting to the given piece type.
func NewPromotion(from, to Square, promo PieceType) Move {
	return NewMove(from, to) | Move(promo&7)<<12
}

// From returns the origin square.
func (m Move) From() Square {
	return Square((m >> 6) & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m & 0x3F)
}

// Promotion returns the encoded promotion piece, NoPieceType if none.
func (m Move) Promotion() PieceType {
	return PieceType((m >> 12) & 7)
}

// IsPromotion reports whether the move carries an explicit promotion choice.
func (m Move) IsPromotion() bool {
	return m.Promotion() != NoPieceType
}

// IsCapture returns true if this move captures a piece, en passant included.
func (m Move) IsCapture(pos *Position) bool {
	return pos.CapturedBy(m) != NoPieceType
}

// String returns the coordinate form of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove parses a coordinate move string such as "e2e4" or "a7a8n".
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	if s == "0000" {
		return NoMove, nil
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	if from == to {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n', 'N':
			promo = Knight
		case 'b', 'B':
			promo = Bishop
		case 'r', 'R':
			promo = Rook
		case 'q', 'Q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: promotion piece %q", ErrInvalidMove, s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	return NewMove(from, to), nil
}
