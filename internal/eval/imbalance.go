package eval

import (
	"fmt"

	"github.com/hailam/humanchess/internal/board"
)

// Imbalances describes the strategic differences between the two sides,
// per color where it applies.
type Imbalances struct {
	MaterialDiff int // White minus Black

	BetterMinor [2]bool
	WeakPawns   [2]bool
	PassedPawn  [2]bool
	Space       [2]int
	KingSafety  [2]int
	Development [2]int // zero outside the opening
	Initiative  [2]int
	LoosePieces [2]int
	BishopPair  [2]bool
	Opening     bool
}

// Imbalances analyzes pos.
func (e *Evaluator) Imbalances(pos *board.Position) Imbalances {
	t := e.analyze(pos)
	imb := Imbalances{
		MaterialDiff: t.material[board.White] - t.material[board.Black],
		PassedPawn:   t.passed,
		Space:        t.space,
		KingSafety:   t.kingSafety,
		Initiative:   t.initiative,
		Opening:      t.opening,
	}

	var minors [2]int
	for c := board.White; c <= board.Black; c++ {
		minors[c] = pos.Pieces(c, board.Knight).PopCount() + pos.Pieces(c, board.Bishop).PopCount()
		imb.WeakPawns[c] = t.structure[c] < -30
		imb.LoosePieces[c] = t.prophylaxis[c] / loosePieceMalus
		imb.BishopPair[c] = pos.Pieces(c, board.Bishop).PopCount() >= 2
		if t.opening {
			imb.Development[c] = t.development[c]
		}
	}
	imb.BetterMinor[board.White] = minors[board.White] > minors[board.Black]
	imb.BetterMinor[board.Black] = minors[board.Black] > minors[board.White]

	return imb
}

// Explain describes the position in plain words, most important first.
func (e *Evaluator) Explain(pos *board.Position) []string {
	imb := e.Imbalances(pos)
	var notes []string

	switch {
	case imb.MaterialDiff > 0:
		notes = append(notes, fmt.Sprintf("White is up %d centipawns of material", imb.MaterialDiff))
	case imb.MaterialDiff < 0:
		notes = append(notes, fmt.Sprintf("Black is up %d centipawns of material", -imb.MaterialDiff))
	}

	for c := board.White; c <= board.Black; c++ {
		if imb.BetterMinor[c] {
			notes = append(notes, fmt.Sprintf("%s has more minor pieces", c))
		}
		if imb.BishopPair[c] && !imb.BishopPair[c.Other()] {
			notes = append(notes, fmt.Sprintf("%s has the bishop pair", c))
		}
		if imb.PassedPawn[c] {
			notes = append(notes, fmt.Sprintf("%s has a passed pawn", c))
		}
		if imb.WeakPawns[c] {
			notes = append(notes, fmt.Sprintf("%s has weak pawns", c))
		}
		if imb.LoosePieces[c] > 0 {
			notes = append(notes, fmt.Sprintf("%s has %d loose piece(s)", c, imb.LoosePieces[c]))
		}
	}

	w, b := board.White, board.Black
	switch {
	case imb.KingSafety[w] > imb.KingSafety[b]+20:
		notes = append(notes, "White's king is safer")
	case imb.KingSafety[b] > imb.KingSafety[w]+20:
		notes = append(notes, "Black's king is safer")
	}

	switch {
	case imb.Space[w] > imb.Space[b]+2:
		notes = append(notes, "White has more space")
	case imb.Space[b] > imb.Space[w]+2:
		notes = append(notes, "Black has more space")
	}

	if imb.Opening {
		switch {
		case imb.Development[w] > imb.Development[b]+20:
			notes = append(notes, "White leads in development")
		case imb.Development[b] > imb.Development[w]+20:
			notes = append(notes, "Black leads in development")
		}
	}

	switch {
	case imb.Initiative[w] > imb.Initiative[b]+10:
		notes = append(notes, "White has the initiative")
	case imb.Initiative[b] > imb.Initiative[w]+10:
		notes = append(notes, "Black has the initiative")
	}

	if len(notes) == 0 {
		notes = append(notes, "The position is balanced")
	}
	return notes
}
