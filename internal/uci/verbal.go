package uci

import (
	"fmt"
	"strings"

	"github.com/hailam/humanchess/internal/board"
)

// DescribeMove puts a move into words, e.g. "Knight from g1 to f3".
func DescribeMove(pos *board.Position, m board.Move) string {
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case piece.Type() == board.King && m.To() == m.From()+2:
		sb.WriteString("castles kingside")
	case piece.Type() == board.King && m.To()+2 == m.From():
		sb.WriteString("castles queenside")
	default:
		fmt.Fprintf(&sb, "%s from %s to %s", piece.Type(), m.From(), m.To())
	}

	if victim := pos.CapturedBy(m); victim != board.NoPieceType {
		fmt.Fprintf(&sb, " taking the %s", strings.ToLower(victim.String()))
	}
	if m.IsPromotion() {
		fmt.Fprintf(&sb, " and promotes to %s", strings.ToLower(m.Promotion().String()))
	}
	if pos.GivesCheck(m) {
		sb.WriteString(" with check")
	}
	return sb.String()
}

// DescribeLine describes a principal variation move by move, naming the side
// that plays each move.
func DescribeLine(pos board.Position, pv []board.Move) string {
	steps := make([]string, 0, len(pv))
	for _, m := range pv {
		steps = append(steps, fmt.Sprintf("%s: %s", pos.SideToMove, DescribeMove(&pos, m)))
		pos = pos.Apply(m)
	}
	return strings.Join(steps, "; ")
}
