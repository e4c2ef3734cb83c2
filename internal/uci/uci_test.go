package uci

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/humanchess/internal/board"
	"github.com/hailam/humanchess/internal/book"
	"github.com/hailam/humanchess/internal/engine"
	"github.com/hailam/humanchess/internal/eval"
	"github.com/hailam/humanchess/internal/storage"
)

func newTestUCI(t *testing.T, store *storage.Storage) (*UCI, *bytes.Buffer) {
	t.Helper()
	ev := eval.New()
	opts := engine.DefaultOptions()
	opts.HashMB = 1
	u := New(engine.New(ev, opts), ev, store, Config{})
	var out bytes.Buffer
	u.SetOutput(&out)
	return u, &out
}

func positionFEN(u *UCI) string {
	pos := u.Position()
	return pos.FEN()
}

func bestMove(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "bestmove "); ok {
			return rest
		}
	}
	t.Fatalf("no bestmove in output:\n%s", out)
	return ""
}

func TestHandshake(t *testing.T) {
	u, out := newTestUCI(t, nil)

	assert.True(t, u.Handle("uci"))
	assert.True(t, u.Handle("isready"))

	got := out.String()
	assert.Contains(t, got, "id name Human Chess Engine")
	assert.Contains(t, got, "option name PlayingStyle type combo default classical var classical var attacking")
	assert.Contains(t, got, "option name CandidateRate type spin default 30 min 0 max 100")
	assert.True(t, strings.HasSuffix(got, "uciok\nreadyok\n"))
}

func TestPosition(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("position startpos moves e2e4 e7e5 g1f3")
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", positionFEN(u))

	u.Handle("position fen 8/P7/8/8/8/8/8/K6k w - - 0 1 moves a7a8n")
	assert.Equal(t, "N7/8/8/8/8/8/8/K6k b - - 0 1", positionFEN(u))

	u.Handle("position fen 8/P7/8/8/8/8/8/K6k w - - 0 1 moves a7a8")
	assert.Equal(t, "Q7/8/8/8/8/8/8/K6k b - - 0 1", positionFEN(u))

	// Applying stops at the first illegal move.
	u.Handle("position startpos moves e2e4 e2e4 e7e5")
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", positionFEN(u))
	assert.Contains(t, out.String(), "info string Invalid move: e2e4")
}

func TestPositionInvalidFENFallsBackToStart(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("position fen rnbqkbnr/pppppppp/8/8 w KQkq - 0 1 moves e2e4")
	assert.Contains(t, out.String(), "info string Invalid FEN")
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", positionFEN(u))
}

func TestGoDepth(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("position startpos")
	u.Handle("go depth 2")
	u.Wait()

	got := out.String()
	assert.Contains(t, got, "info depth 1 score cp")
	assert.Contains(t, got, "info depth 2 score cp")

	m, err := board.ParseMove(bestMove(t, got))
	require.NoError(t, err)
	pos := board.NewPosition()
	assert.Contains(t, pos.LegalMoves(), m)
}

func TestGoNoLegalMoves(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("position fen 7k/6Q1/6K1/8/8/8/8/8 b - - 0 1")
	u.Handle("go depth 3")
	u.Wait()
	assert.Equal(t, "0000", bestMove(t, out.String()))
}

func TestStopInfinite(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("position startpos")
	u.Handle("go infinite")
	time.Sleep(50 * time.Millisecond)
	u.Handle("stop")

	m, err := board.ParseMove(bestMove(t, out.String()))
	require.NoError(t, err)
	pos := board.NewPosition()
	assert.Contains(t, pos.LegalMoves(), m)
}

func TestInfiniteWaitsForStop(t *testing.T) {
	u, out := newTestUCI(t, nil)
	output := func() string {
		u.outMu.Lock()
		defer u.outMu.Unlock()
		return out.String()
	}

	u.Handle("position fen 7k/8/8/8/8/8/8/K6R w - - 0 1")
	u.Handle("go infinite depth 1")
	require.Eventually(t, func() bool {
		return strings.Contains(output(), "info depth 1")
	}, 5*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.NotContains(t, output(), "bestmove")

	u.Handle("stop")
	assert.Contains(t, output(), "bestmove ")
}

func TestSetOption(t *testing.T) {
	is := is.New(t)
	u, out := newTestUCI(t, nil)

	u.Handle("setoption name PlayingStyle value tactical")
	is.Equal(u.eval.Style().Name, "tactical")

	u.Handle("setoption name CandidateRate value 100")
	is.Equal(u.engine.Options().CandidateRate, 100)

	u.Handle("setoption name Seed value 42")
	is.Equal(u.engine.Options().Seed, uint64(42))

	u.Handle("setoption name SkillLevel value 20")
	is.Equal(u.defaultDepth, 6)

	u.Handle("setoption name VerbalPV value true")
	is.True(u.verbalPV)

	u.Handle("setoption name PlayingStyle value hypermodern")
	is.Equal(u.eval.Style().Name, "tactical") // unknown style keeps the current one
	is.True(strings.Contains(out.String(), "info string Invalid value for PlayingStyle"))

	u.Handle("setoption name Frobnicate value 1")
	is.True(strings.Contains(out.String(), "info string Unknown option: Frobnicate"))
}

func TestVerbalOutput(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("setoption name VerbalPV value true")
	u.Handle("setoption name ShowImbalances value true")
	u.Handle("position fen rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	u.Handle("go depth 1")
	u.Wait()

	got := out.String()
	assert.Contains(t, got, "info string White: ")
	assert.Contains(t, got, "info string White is up 900 centipawns of material")
}

func TestParseGoOptions(t *testing.T) {
	is := is.New(t)

	opts := ParseGoOptions(strings.Fields("wtime 60000 btime 30000 winc 1000 binc 0 movestogo 20 depth 7"))
	is.Equal(opts.WTime, 60*time.Second)
	is.Equal(opts.BTime, 30*time.Second)
	is.Equal(opts.WInc, time.Second)
	is.Equal(opts.MovesToGo, 20)
	is.Equal(opts.Depth, 7)

	opts = ParseGoOptions(strings.Fields("movetime abc infinite depth"))
	is.Equal(opts.MoveTime, time.Duration(0))
	is.True(opts.Infinite)
	is.Equal(opts.Depth, 0)
}

func TestCalculateLimits(t *testing.T) {
	is := is.New(t)
	u, _ := newTestUCI(t, nil)

	limits := u.calculateLimits(GoOptions{})
	is.Equal(limits, engine.SearchLimits{Depth: 4, MoveTime: 30 * time.Second})

	limits = u.calculateLimits(GoOptions{Depth: 2, MoveTime: time.Second})
	is.Equal(limits, engine.SearchLimits{Depth: 2, MoveTime: time.Second})

	limits = u.calculateLimits(GoOptions{Infinite: true, MoveTime: time.Second})
	is.Equal(limits, engine.SearchLimits{Infinite: true})

	limits = u.calculateLimits(GoOptions{WTime: 60 * time.Second, BTime: 60 * time.Second})
	is.Equal(limits.MoveTime, 2*time.Second)
}

func TestAnalysisIsRecorded(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	u, out := newTestUCI(t, store)
	u.Handle("setoption name Hash value 2")
	u.Handle("position startpos moves e2e4")
	u.Handle("go depth 2")
	u.Wait()

	rec, err := store.LookupAnalysis(positionFEN(u))
	require.NoError(t, err)
	assert.Equal(t, bestMove(t, out.String()), rec.BestMove)
	assert.Equal(t, 2, rec.Depth)
	assert.Equal(t, "classical", rec.Style)

	saved, err := store.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, 2, saved.HashMB)

	other, _ := newTestUCI(t, store)
	other.Restore(saved)
	assert.Equal(t, 2, other.engine.Options().HashMB)
}

func TestOwnBook(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("setoption name OwnBook value true")
	u.Handle("position startpos")
	u.Handle("go depth 3")
	u.Wait()

	assert.Contains(t, out.String(), "info string book move")
	assert.NotContains(t, out.String(), "info depth")
	assert.Contains(t, []string{"e2e4", "d2d4", "c2c4", "g1f3"}, bestMove(t, out.String()))

	out.Reset()
	u.Handle("position fen 7k/8/8/8/8/8/8/K6R w - - 0 1")
	u.Handle("go depth 1")
	u.Wait()
	assert.NotContains(t, out.String(), "book move")
	assert.Contains(t, out.String(), "info depth 1")
}

func TestBookFile(t *testing.T) {
	is := is.New(t)

	b := book.New()
	start := board.NewPosition()
	b.Add(&start, board.NewMove(board.A2, board.A3), 1)
	file := filepath.Join(t.TempDir(), "tiny.bin")
	f, err := os.Create(file)
	is.NoErr(err)
	_, err = b.WriteTo(f)
	is.NoErr(err)
	is.NoErr(f.Close())

	u, out := newTestUCI(t, nil)
	u.Handle("setoption name OwnBook value true")
	u.Handle("setoption name BookFile value " + file)
	u.Handle("position startpos")
	u.Handle("go")
	u.Wait()
	is.Equal(bestMove(t, out.String()), "a2a3")

	out.Reset()
	u.Handle("setoption name BookFile value " + filepath.Join(t.TempDir(), "missing.bin"))
	is.True(strings.Contains(out.String(), "info string Invalid value for BookFile"))
}

func TestDebugCommands(t *testing.T) {
	u, out := newTestUCI(t, nil)

	u.Handle("d")
	u.Handle("eval")
	u.Handle("perft 2")
	u.Handle("bogus")

	got := out.String()
	assert.Contains(t, got, "Fen: rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	assert.Contains(t, got, "Legal moves: 20")
	assert.Contains(t, got, "Evaluation: 0 cp (classical style)")
	assert.Contains(t, got, "Nodes: 400")
	assert.Contains(t, got, "info string Unknown command: bogus")
	assert.NotContains(t, got, "Status:")

	out.Reset()
	u.Handle("position fen 7k/6Q1/6K1/8/8/8/8/8 b - - 0 1")
	u.Handle("d")
	assert.Contains(t, out.String(), "Status: checkmate")

	out.Reset()
	u.Handle("position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	u.Handle("d")
	assert.Contains(t, out.String(), "Status: stalemate")
}

func TestRun(t *testing.T) {
	u, out := newTestUCI(t, nil)

	err := u.Run(context.Background(), strings.NewReader("isready\nposition startpos\ngo depth 1\nquit\nisready\n"))
	require.NoError(t, err)

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "readyok"))
	assert.Contains(t, got, "bestmove ")
}

func TestConsoleLine(t *testing.T) {
	u, out := newTestUCI(t, nil)

	assert.True(t, u.ConsoleLine(`position fen "8/8/8/8/8/8/8/K6k w - - 0 1"`))
	assert.Equal(t, "8/8/8/8/8/8/8/K6k w - - 0 1", positionFEN(u))

	assert.True(t, u.ConsoleLine("go depth 1"))
	assert.NotEmpty(t, bestMove(t, out.String()))

	assert.True(t, u.ConsoleLine("help"))
	assert.Contains(t, out.String(), "Commands:")

	assert.True(t, u.ConsoleLine(`position fen "unterminated`))
	assert.Contains(t, out.String(), "Error:")

	assert.False(t, u.ConsoleLine("exit"))
}

func TestDescribeMove(t *testing.T) {
	pos := board.NewPosition()
	assert.Equal(t, "Knight from g1 to f3", DescribeMove(&pos, board.NewMove(board.G1, board.F3)))

	castle, err := board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	assert.Equal(t, "castles kingside", DescribeMove(&castle, board.NewMove(board.E1, board.G1)))
	assert.Equal(t, "castles queenside", DescribeMove(&castle, board.NewMove(board.E1, board.C1)))

	capture, err := board.ParseFEN("4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, "Pawn from e4 to d5 taking the pawn", DescribeMove(&capture, board.NewMove(board.E4, board.D5)))

	line := DescribeLine(pos, []board.Move{board.NewMove(board.E2, board.E4), board.NewMove(board.E7, board.E5)})
	assert.Equal(t, "White: Pawn from e2 to e4; Black: Pawn from e7 to e5", line)
}
