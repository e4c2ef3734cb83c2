package eval

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/hailam/humanchess/internal/board"
)

func position(t *testing.T, fen string) board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestStartPositionIsBalanced(t *testing.T) {
	is := is.New(t)
	e := New()
	pos := board.NewPosition()
	is.Equal(e.Evaluate(&pos), 0)

	sig := e.Signals(&pos)
	is.Equal(sig.MaterialImbalance, 0)
	is.True(sig.Opening)
	is.True(!sig.KingSafetyConcern)
	is.True(!sig.PassedPawns)
}

func TestEvaluationIsColorSymmetric(t *testing.T) {
	is := is.New(t)
	e := New()
	// the same structure with colors swapped and the board flipped
	white := position(t, "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4")
	black := position(t, "rnbqk2r/pppp1ppp/5n2/2b1p3/4P3/2N2N2/PPPP1PPP/R1BQKB1R b KQkq - 4 4")
	is.Equal(e.Evaluate(&white), -e.Evaluate(&black))
}

func TestQueenUpReportsMaterial(t *testing.T) {
	is := is.New(t)
	e := New()
	pos := position(t, "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")

	imb := e.Imbalances(&pos)
	is.Equal(imb.MaterialDiff, 900)
	is.True(e.Evaluate(&pos) > 800)
	is.Equal(e.Signals(&pos).MaterialImbalance, 900)
}

func TestPawnStructureTerms(t *testing.T) {
	is := is.New(t)
	e := New()

	// isolated and doubled pawns outweigh the passed bonus
	pos := position(t, "4k3/5ppp/8/8/P7/2P5/2P5/4K3 w - - 0 1")
	imb := e.Imbalances(&pos)
	is.True(imb.PassedPawn[board.White])
	is.True(imb.PassedPawn[board.Black]) // nothing stands in front of the kingside pawns
	is.True(!imb.WeakPawns[board.White])
	is.True(e.Signals(&pos).PassedPawns)

	// four isolated pawns facing a full chain
	weak := position(t, "4k3/pppppppp/8/8/8/P1P1P1P1/8/4K3 w - - 0 1")
	imb = e.Imbalances(&weak)
	is.True(imb.WeakPawns[board.White])
	is.True(!imb.WeakPawns[board.Black])
	is.True(!imb.PassedPawn[board.Black])

	// blocked by an adjacent-file pawn
	blocked := position(t, "4k3/1p6/8/P7/8/8/8/4K3 w - - 0 1")
	is.True(!e.Imbalances(&blocked).PassedPawn[board.White])
}

func TestPawnCacheHits(t *testing.T) {
	is := is.New(t)
	e := New()
	pos := board.NewPosition()
	e.Evaluate(&pos)
	e.Evaluate(&pos)
	is.True(e.pawns.HitRate() > 0)

	e.pawns.Clear()
	is.Equal(e.pawns.HitRate(), 0.0)
}

func TestStyles(t *testing.T) {
	is := is.New(t)
	is.Equal(StyleNames(), []string{"classical", "attacking", "tactical", "positional", "technical"})

	s, err := ParseStyle("Tactical")
	is.NoErr(err)
	is.Equal(s.Name, "tactical")

	_, err = ParseStyle("romantic")
	is.True(errors.Is(err, ErrUnknownStyle))

	e := New()
	is.NoErr(e.SetStyle("attacking"))
	is.Equal(e.Style().Name, "attacking")
	is.True(e.SetStyle("nope") != nil)
	is.Equal(e.Style().Name, "attacking")
}

func TestExplain(t *testing.T) {
	is := is.New(t)
	e := New()

	start := board.NewPosition()
	is.Equal(e.Explain(&start), []string{"The position is balanced"})

	pos := position(t, "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	notes := e.Explain(&pos)
	is.True(len(notes) > 0)
	is.Equal(notes[0], "White is up 900 centipawns of material")
}
