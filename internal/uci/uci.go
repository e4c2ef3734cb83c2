// Package uci implements the Universal Chess Interface protocol on top of
// the engine, plus an interactive console that speaks the same commands.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/hailam/humanchess/internal/board"
	"github.com/hailam/humanchess/internal/book"
	"github.com/hailam/humanchess/internal/engine"
	"github.com/hailam/humanchess/internal/eval"
	"github.com/hailam/humanchess/internal/storage"
)

const (
	engineName   = "Human Chess Engine"
	engineAuthor = "humanchess authors"

	defaultSkillLevel = 10
)

// Config holds the protocol-level defaults.
type Config struct {
	DefaultDepth    int           // depth for "go" without a depth
	DefaultMoveTime time.Duration // think time for "go" without a clock
	Threads         int
	OwnBook         bool
	BookFile        string // empty selects the built-in repertoire
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	eval     *eval.Evaluator
	store    *storage.Storage // nil disables persistence
	position board.Position

	defaultDepth    int
	defaultMoveTime time.Duration
	threads         int
	skillLevel      int
	verbalPV        bool
	showImbalances  bool
	ownBook         bool
	bookFile        string
	book            *book.Book
	bookRNG         *frand.RNG

	// Search state
	searchDone chan struct{}
	cancel     context.CancelFunc
	hold       chan struct{} // closed by stop; an infinite search reports only then

	outMu sync.Mutex
	out   io.Writer
}

// New creates a new UCI protocol handler writing to stdout. ev must be the
// evaluator the engine searches with, so style changes reach the search.
func New(eng *engine.Engine, ev *eval.Evaluator, store *storage.Storage, cfg Config) *UCI {
	if cfg.DefaultDepth <= 0 {
		cfg.DefaultDepth = 4
	}
	if cfg.DefaultMoveTime <= 0 {
		cfg.DefaultMoveTime = 30 * time.Second
	}
	u := &UCI{
		engine:          eng,
		eval:            ev,
		store:           store,
		position:        board.NewPosition(),
		defaultDepth:    cfg.DefaultDepth,
		defaultMoveTime: cfg.DefaultMoveTime,
		threads:         max(cfg.Threads, 1),
		skillLevel:      defaultSkillLevel,
		ownBook:         cfg.OwnBook,
		book:            book.Default(),
		bookRNG:         engine.NewRNG(eng.Options().Seed),
		out:             os.Stdout,
	}
	if cfg.BookFile != "" {
		if err := u.loadBook(cfg.BookFile); err != nil {
			log.Warn().Err(err).Str("file", cfg.BookFile).Msg("book-load-failed-using-builtin")
		}
	}
	eng.OnInfo = u.sendInfo
	return u
}

// loadBook replaces the opening book with the one stored in file. An empty
// name restores the built-in repertoire.
func (u *UCI) loadBook(file string) error {
	if file == "" {
		u.book, u.bookFile = book.Default(), ""
		return nil
	}
	b, err := book.Load(file)
	if err != nil {
		return err
	}
	u.book, u.bookFile = b, file
	log.Info().Str("file", file).Int("positions", b.Size()).Msg("book-loaded")
	return nil
}

// SetOutput redirects protocol output.
func (u *UCI) SetOutput(w io.Writer) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	u.out = w
}

// Position returns the current position.
func (u *UCI) Position() board.Position {
	return u.position
}

// Restore applies previously saved settings.
func (u *UCI) Restore(opts storage.EngineOptions) {
	if opts.HashMB > 0 {
		u.engine.ResizeHash(opts.HashMB)
	}
	if opts.Seed != 0 {
		u.engine.SetSeed(opts.Seed)
		u.bookRNG = engine.NewRNG(opts.Seed)
	}
	if opts.CandidateRate > 0 {
		u.engine.SetCandidateRate(opts.CandidateRate)
	}
	if opts.MaxDepth > 0 {
		u.defaultDepth = opts.MaxDepth
	}
	if opts.Style != "" {
		if err := u.eval.SetStyle(opts.Style); err != nil {
			log.Warn().Err(err).Msg("ignoring-saved-style")
		}
	}
	u.verbalPV = opts.VerbalPV
	u.showImbalances = opts.ShowImbalances
	u.ownBook = opts.OwnBook
	if opts.BookFile != "" {
		if err := u.loadBook(opts.BookFile); err != nil {
			log.Warn().Err(err).Msg("ignoring-saved-book")
		}
	}
}

// Run reads commands from r until "quit", end of input or ctx is done.
func (u *UCI) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			u.handleStop()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if u.hold != nil {
					u.handleStop()
				}
				u.Wait()
				return <-errc
			}
			if !u.Handle(line) {
				return nil
			}
		}
	}
}

// Handle executes one command line. It returns false after "quit".
func (u *UCI) Handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]
	log.Debug().Str("cmd", cmd).Strs("args", args).Msg("uci-command")

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "ucinewgame":
		u.handleStop()
		u.handleNewGame()
	case "position":
		u.handleStop()
		u.handlePosition(args)
	case "go":
		u.handleStop()
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		u.handleStop()
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.handleStop()
		u.handleDisplay()
	case "eval":
		u.handleStop()
		u.handleEval()
	case "perft":
		u.handleStop()
		u.handlePerft(args)
	default:
		u.send("info string Unknown command: %s", cmd)
	}
	return true
}

// Wait blocks until the running search, if any, has reported its move.
// An infinite search reports only after stop, so use Handle("stop") for it.
func (u *UCI) Wait() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
	}
}

func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	opts := u.engine.Options()
	u.send("id name %s", engineName)
	u.send("id author %s", engineAuthor)
	u.send("")
	u.send("option name PlayingStyle type combo default %s %s", u.eval.Style().Name,
		strings.Join(lo.Map(eval.StyleNames(), func(s string, _ int) string { return "var " + s }), " "))
	u.send("option name SkillLevel type spin default %d min 0 max 20", defaultSkillLevel)
	u.send("option name Hash type spin default %d min 1 max 4096", opts.HashMB)
	u.send("option name Threads type spin default 1 min 1 max 32")
	u.send("option name CandidateRate type spin default %d min 0 max 100", opts.CandidateRate)
	u.send("option name Seed type string default %d", opts.Seed)
	u.send("option name VerbalPV type check default false")
	u.send("option name ShowImbalances type check default false")
	u.send("option name OwnBook type check default %t", u.ownBook)
	u.send("option name BookFile type string default <empty>")
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// An unparsable FEN falls back to the starting position.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	moveStart := slices.Index(args, "moves")
	fenEnd := len(args)
	if moveStart >= 0 {
		fenEnd = moveStart
	}

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
	case "fen":
		pos, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			u.send("info string Invalid FEN: %v", err)
			log.Warn().Err(err).Msg("invalid-fen-using-startpos")
			pos = board.NewPosition()
		}
		u.position = pos
	default:
		return
	}

	if moveStart < 0 {
		return
	}
	for _, moveStr := range args[moveStart+1:] {
		m, err := u.parseMove(moveStr)
		if err != nil {
			u.send("info string Invalid move: %s", moveStr)
			return
		}
		u.position = u.position.Apply(m)
	}
}

// parseMove converts a UCI move string to a legal move in the current position.
func (u *UCI) parseMove(moveStr string) (board.Move, error) {
	m, err := board.ParseMove(moveStr)
	if err != nil {
		return board.NoMove, err
	}
	legal := u.position.LegalMoves()
	if slices.Contains(legal, m) {
		return m, nil
	}
	// A pawn reaching the last rank without a promotion letter becomes a queen.
	if q := board.NewPromotion(m.From(), m.To(), board.Queen); !m.IsPromotion() && slices.Contains(legal, q) {
		return q, nil
	}
	return board.NoMove, fmt.Errorf("%w: %s is not legal here", board.ErrInvalidMove, moveStr)
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// ParseGoOptions parses "go" command arguments. Unknown tokens and
// malformed numbers are ignored.
func ParseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	intArg := func(i int) int {
		if i+1 >= len(args) {
			return 0
		}
		n, _ := strconv.Atoi(args[i+1])
		return n
	}
	msArg := func(i int) time.Duration {
		return time.Duration(intArg(i)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			opts.Depth = intArg(i)
			i++
		case "movetime":
			opts.MoveTime = msArg(i)
			i++
		case "infinite":
			opts.Infinite = true
		case "wtime":
			opts.WTime = msArg(i)
			i++
		case "btime":
			opts.BTime = msArg(i)
			i++
		case "winc":
			opts.WInc = msArg(i)
			i++
		case "binc":
			opts.BInc = msArg(i)
			i++
		case "movestogo":
			opts.MovesToGo = intArg(i)
			i++
		}
	}

	return opts
}

// calculateLimits converts GoOptions to engine.SearchLimits. Without an
// explicit depth the configured default depth applies; without a move time
// or clock the configured default move time does.
func (u *UCI) calculateLimits(opts GoOptions) engine.SearchLimits {
	if opts.Infinite {
		return engine.SearchLimits{Infinite: true, Depth: opts.Depth}
	}

	limits := engine.SearchLimits{Depth: u.defaultDepth, MoveTime: u.defaultMoveTime}
	if opts.Depth > 0 {
		limits.Depth = opts.Depth
	}

	switch {
	case opts.MoveTime > 0:
		limits.MoveTime = opts.MoveTime
	case opts.WTime > 0 || opts.BTime > 0:
		limits.MoveTime = engine.AllocateMoveTime(engine.Clock{
			Time:      [2]time.Duration{opts.WTime, opts.BTime},
			Inc:       [2]time.Duration{opts.WInc, opts.BInc},
			MovesToGo: opts.MovesToGo,
		}, u.position.SideToMove)
		limits.MoveTime = max(limits.MoveTime, 10*time.Millisecond)
		log.Debug().Dur("allocated", limits.MoveTime).Msg("time-allocated")
	}

	return limits
}

// handleGo starts a search with the given parameters. With OwnBook set, a
// position the book knows is answered without searching.
func (u *UCI) handleGo(args []string) {
	opts := ParseGoOptions(args)
	pos := u.position

	if u.ownBook && !opts.Infinite {
		if m, ok := u.book.Probe(&pos, u.bookRNG); ok {
			log.Debug().Str("move", m.String()).Msg("book-move")
			u.send("info string book move")
			u.send("bestmove %s", m)
			return
		}
	}

	limits := u.calculateLimits(opts)

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	var hold chan struct{}
	if opts.Infinite {
		hold = make(chan struct{})
		u.hold = hold
	}

	done := make(chan struct{})
	u.searchDone = done
	go func() {
		defer close(done)
		defer cancel()

		result := u.engine.Search(ctx, pos, limits)
		if hold != nil {
			<-hold
		}
		u.report(pos, result)
	}()
}

// report prints the final lines of a search and records it.
func (u *UCI) report(pos board.Position, result engine.SearchResult) {
	if u.verbalPV && len(result.PV) > 0 {
		u.send("info string %s", DescribeLine(pos, result.PV))
	}
	if u.showImbalances {
		for _, note := range u.eval.Explain(&pos) {
			u.send("info string %s", note)
		}
	}

	u.send("bestmove %s", result.BestMove)

	if u.store == nil || result.BestMove == board.NoMove {
		return
	}
	rec := storage.AnalysisRecord{
		FEN:      pos.FEN(),
		BestMove: result.BestMove.String(),
		Score:    result.Score,
		Depth:    result.Depth,
		Nodes:    result.Nodes,
		Time:     result.Time,
		PV:       lo.Map(result.PV, func(m board.Move, _ int) string { return m.String() }),
		Style:    u.eval.Style().Name,
		Stopped:  result.State == engine.StateStopped,
	}
	if err := u.store.RecordAnalysis(rec); err != nil {
		log.Warn().Err(err).Msg("record-analysis-failed")
	}
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("score cp %d", info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}

	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}
	if len(info.PV) > 0 {
		parts = append(parts, "pv "+strings.Join(lo.Map(info.PV, func(m board.Move, _ int) string { return m.String() }), " "))
	}

	u.send("info %s", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.cancel()
	if u.hold != nil {
		close(u.hold)
		u.hold = nil
	}
	u.Wait()
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}
	val := strings.Join(value, " ")

	var err error
	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		var mb int
		if mb, err = strconv.Atoi(val); err == nil && mb >= 1 {
			u.engine.ResizeHash(mb)
		}
	case "threads":
		var n int
		if n, err = strconv.Atoi(val); err == nil && n >= 1 {
			u.threads = n
			log.Info().Int("threads", n).Msg("threads-accepted-search-stays-single-threaded")
		}
	case "playingstyle":
		err = u.eval.SetStyle(val)
	case "candidaterate":
		var pct int
		if pct, err = strconv.Atoi(val); err == nil {
			u.engine.SetCandidateRate(pct)
		}
	case "seed":
		var seed uint64
		if seed, err = strconv.ParseUint(val, 10, 64); err == nil {
			u.engine.SetSeed(seed)
			u.bookRNG = engine.NewRNG(seed)
		}
	case "skilllevel":
		var level int
		if level, err = strconv.Atoi(val); err == nil {
			u.skillLevel = min(max(level, 0), 20)
			u.defaultDepth = skillDepth(u.skillLevel)
		}
	case "verbalpv":
		u.verbalPV = strings.EqualFold(val, "true")
	case "showimbalances":
		u.showImbalances = strings.EqualFold(val, "true")
	case "ownbook":
		u.ownBook = strings.EqualFold(val, "true")
	case "bookfile":
		if val == "<empty>" {
			val = ""
		}
		err = u.loadBook(val)
	default:
		u.send("info string Unknown option: %s", strings.Join(name, " "))
		return
	}

	if err != nil {
		u.send("info string Invalid value for %s: %v", strings.Join(name, " "), err)
		return
	}
	u.saveOptions()
}

// skillDepth maps a 0-20 skill level onto a default search depth of 2-6.
func skillDepth(level int) int {
	return 2 + level/5
}

func (u *UCI) saveOptions() {
	if u.store == nil {
		return
	}
	opts := u.engine.Options()
	err := u.store.SaveOptions(storage.EngineOptions{
		HashMB:         opts.HashMB,
		Seed:           opts.Seed,
		CandidateRate:  opts.CandidateRate,
		MaxDepth:       u.defaultDepth,
		Style:          u.eval.Style().Name,
		VerbalPV:       u.verbalPV,
		ShowImbalances: u.showImbalances,
		OwnBook:        u.ownBook,
		BookFile:       u.bookFile,
	})
	if err != nil {
		log.Warn().Err(err).Msg("save-options-failed")
	}
}

// handleDisplay prints the board, FEN and legal move count.
func (u *UCI) handleDisplay() {
	u.send("%s", u.position.String())
	u.send("Side to move: %s", u.position.SideToMove)
	u.send("Legal moves: %d", len(u.position.LegalMoves()))
	switch {
	case u.position.IsCheckmate():
		u.send("Status: checkmate")
	case u.position.IsStalemate():
		u.send("Status: stalemate")
	}
}

// handleEval prints the static evaluation and the notes behind it.
func (u *UCI) handleEval() {
	u.send("Evaluation: %d cp (%s style)", u.engine.Evaluate(&u.position), u.eval.Style().Name)
	u.send("Notes:")
	for _, note := range u.eval.Explain(&u.position) {
		u.send("  - %s", note)
	}
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d >= 0 {
			depth = d
		}
	}

	start := time.Now()
	nodes := u.position.Perft(depth)
	elapsed := time.Since(start)

	u.send("Nodes: %d", nodes)
	u.send("Time: %v", elapsed)
	if elapsed > 0 {
		u.send("NPS: %.0f", float64(nodes)/elapsed.Seconds())
	}
}
