// Package eval scores positions the way a human trainer would: material,
// piece activity, pawn structure, space, initiative, king safety,
// development and loose pieces, weighted by a playing style.
package eval

import (
	"math"

	"github.com/hailam/humanchess/internal/board"
)

// Term values in centipawns.
const (
	passedPawnBonus   = 50
	isolatedPawnMalus = -20
	doubledPawnMalus  = -10

	developedMinorBonus = 10
	centralPieceBonus   = 5

	shieldPawnBonus     = 10
	castlingRightsBonus = 20
	kingCenterMalus     = 3

	homePieceMalus = -15

	kingZoneAttackBonus = 5
	loosePieceMalus     = -10

	spaceScale = 10

	// openingMaterial is the non-king material above which the game is
	// still considered to be in the opening.
	openingMaterial = 4000
)

// Signals summarizes features a time manager may want to react to.
type Signals struct {
	MaterialImbalance int  // White minus Black material
	KingSafetyConcern bool // either king scores below zero on safety
	PassedPawns       bool // at least one passed pawn on the board
	Opening           bool
}

// Evaluator is the default position scorer. An Evaluator keeps a pawn
// cache and must not be shared between goroutines.
type Evaluator struct {
	style Style
	pawns *PawnCache
}

// New returns an Evaluator using the default style.
func New() *Evaluator {
	return &Evaluator{
		style: DefaultStyle,
		pawns: NewPawnCache(256),
	}
}

// Style returns the active playing style.
func (e *Evaluator) Style() Style {
	return e.style
}

// SetStyle switches the playing style. Unknown names keep the current one.
func (e *Evaluator) SetStyle(name string) error {
	s, err := ParseStyle(name)
	if err != nil {
		return err
	}
	e.style = s
	return nil
}

// terms holds the unweighted per-color values of every evaluation term.
type terms struct {
	material    [2]int
	activity    [2]int
	structure   [2]int
	passed      [2]bool
	space       [2]int
	initiative  [2]int
	kingSafety  [2]int
	development [2]int
	prophylaxis [2]int
	opening     bool
}

// Evaluate returns the score in centipawns, positive when White is better.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	t := e.analyze(pos)
	w := e.style.Weights

	diff := func(v [2]int) float64 { return float64(v[board.White] - v[board.Black]) }

	score := diff(t.material) * w.Material
	score += diff(t.activity) * w.Activity
	score += diff(t.structure) * w.PawnStructure
	score += diff(t.space) * w.Space * spaceScale
	score += diff(t.initiative) * w.Initiative
	score += diff(t.kingSafety) * w.KingSafety
	if t.opening {
		score += diff(t.development) * w.Development
	}
	score += diff(t.prophylaxis) * w.Prophylaxis

	return int(math.Round(score))
}

// Signals reports the complexity features of the position.
func (e *Evaluator) Signals(pos *board.Position) Signals {
	t := e.analyze(pos)
	return Signals{
		MaterialImbalance: t.material[board.White] - t.material[board.Black],
		KingSafetyConcern: t.kingSafety[board.White] < 0 || t.kingSafety[board.Black] < 0,
		PassedPawns:       t.passed[board.White] || t.passed[board.Black],
		Opening:           t.opening,
	}
}

func (e *Evaluator) analyze(pos *board.Position) terms {
	var t terms
	e.pawnStructure(pos, &t)

	occupied := pos.Occupied()
	var attacked [2]board.Bitboard
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			pieces := pos.Pieces(c, pt)
			for pieces != 0 {
				attacked[c] |= board.AttacksFrom(pt, c, pieces.PopLSB(), occupied)
			}
		}
	}

	for c := board.White; c <= board.Black; c++ {
		t.material[c] = materialOf(pos, c)
		t.activity[c] = activity(pos, c)
		t.space[c] = space(pos, c)
		t.kingSafety[c] = kingSafety(pos, c)
		t.development[c] = development(pos, c)

		if ksq := pos.KingSquare(c.Other()); ksq != board.NoSquare {
			zone := board.KingAttacks(ksq) | board.SquareBB(ksq)
			t.initiative[c] = (attacked[c] & zone).PopCount() * kingZoneAttackBonus
		}

		loose := pos.Colors[c] &^ pos.Kinds[board.King] & attacked[c.Other()] &^ attacked[c]
		t.prophylaxis[c] = loose.PopCount() * loosePieceMalus
	}
	t.opening = t.material[board.White]+t.material[board.Black] > openingMaterial

	return t
}

func materialOf(pos *board.Position, c board.Color) int {
	total := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		total += pos.Pieces(c, pt).PopCount() * board.PieceValue[pt]
	}
	return total
}

// centerDistance is the Manhattan distance to the four central squares.
func centerDistance(sq board.Square) int {
	return (abs(2*sq.File()-7) + abs(2*sq.Rank()-7)) / 2
}

func activity(pos *board.Position, c board.Color) int {
	score := 0
	pieces := pos.Colors[c]
	for pieces != 0 {
		sq := pieces.PopLSB()
		pt := pos.PieceAt(sq).Type()
		score += pstValue(pt, sq, c)

		if (pt == board.Knight || pt == board.Bishop) && sq.RelativeRank(c) > 1 {
			score += developedMinorBonus
		}
		if centerDistance(sq) <= 2 {
			score += centralPieceBonus
		}
	}
	return score
}

// space counts pieces standing in the opponent's half.
func space(pos *board.Position, c board.Color) int {
	n := 0
	pieces := pos.Colors[c]
	for pieces != 0 {
		if pieces.PopLSB().RelativeRank(c) >= 4 {
			n++
		}
	}
	return n
}

func kingSafety(pos *board.Position, c board.Color) int {
	ksq := pos.KingSquare(c)
	if ksq == board.NoSquare {
		return 0
	}

	score := 0
	front := board.KingAttacks(ksq) & board.RankMask[ksq.Rank()].North()
	if c == board.Black {
		front = board.KingAttacks(ksq) & board.RankMask[ksq.Rank()].South()
	}
	score += (front & pos.Pieces(c, board.Pawn)).PopCount() * shieldPawnBonus

	if pos.CastlingRights.CanCastle(c, true) || pos.CastlingRights.CanCastle(c, false) {
		score += castlingRightsBonus
	}

	score -= centerDistance(ksq) * kingCenterMalus
	return score
}

// development penalizes minor and major pieces still on the back rank.
func development(pos *board.Position, c board.Color) int {
	home := board.Rank1
	if c == board.Black {
		home = board.Rank8
	}
	undeveloped := pos.Colors[c] & home &^ pos.Kinds[board.Pawn]
	return undeveloped.PopCount() * homePieceMalus
}

func (e *Evaluator) pawnStructure(pos *board.Position, t *terms) {
	key := pos.PawnKey()
	if entry, ok := e.pawns.probe(key); ok {
		t.structure = [2]int{int(entry.structure[0]), int(entry.structure[1])}
		t.passed = entry.passed
		return
	}

	entry := pawnEntry{key: key}
	for c := board.White; c <= board.Black; c++ {
		own := pos.Pieces(c, board.Pawn)
		enemy := pos.Pieces(c.Other(), board.Pawn)
		score := 0

		pawns := own
		for pawns != 0 {
			sq := pawns.PopLSB()
			file := sq.File()

			adjacent := board.Empty
			if file > 0 {
				adjacent |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacent |= board.FileMask[file+1]
			}

			if enemy&(adjacent|board.FileMask[file])&frontSpan(sq, c) == 0 {
				score += passedPawnBonus
				entry.passed[c] = true
			}
			if own&adjacent == 0 {
				score += isolatedPawnMalus
			}
			if own&board.FileMask[file]&frontSpan(sq, c) != 0 {
				score += doubledPawnMalus
			}
		}
		entry.structure[c] = int16(score)
	}

	e.pawns.store(entry)
	t.structure = [2]int{int(entry.structure[0]), int(entry.structure[1])}
	t.passed = entry.passed
}

// frontSpan returns the ranks strictly ahead of sq from c's side.
func frontSpan(sq board.Square, c board.Color) board.Bitboard {
	rank := board.RankMask[sq.Rank()]
	if c == board.White {
		return rank.NorthFill() &^ rank
	}
	return rank.SouthFill() &^ rank
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
