package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/humanchess/internal/board"
	"github.com/hailam/humanchess/internal/config"
	"github.com/hailam/humanchess/internal/engine"
	"github.com/hailam/humanchess/internal/eval"
)

var benchPositions = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3",
	"6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
}

type benchResult struct {
	fen    string
	result engine.SearchResult
}

// runBench searches every bench position to the configured depth, each on
// its own engine, in parallel.
func runBench(ctx context.Context, cfg config.Config, w io.Writer) error {
	results := make([]benchResult, len(benchPositions))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Threads, 1))
	for i, fen := range benchPositions {
		g.Go(func() error {
			pos, err := board.ParseFEN(fen)
			if err != nil {
				return fmt.Errorf("bench position %d: %w", i, err)
			}
			ev := eval.New()
			if err := ev.SetStyle(cfg.Style); err != nil {
				return err
			}
			eng := engine.New(ev, engineOptions(cfg))
			res := eng.Search(gctx, pos, engine.SearchLimits{Depth: cfg.MaxDepth})
			results[i] = benchResult{fen: fen, result: res}
			log.Debug().Int("position", i).Uint64("nodes", res.Nodes).Msg("bench-position-done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var nodes uint64
	for i, r := range results {
		nodes += r.result.Nodes
		fmt.Fprintf(w, "%2d  %-6s %6d cp  depth %d  %9d nodes  %s\n",
			i+1, r.result.BestMove, r.result.Score, r.result.Depth, r.result.Nodes, r.fen)
	}
	fmt.Fprintf(w, "Nodes: %d\n", nodes)
	fmt.Fprintf(w, "Time: %v\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Fprintf(w, "NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
	return ctx.Err()
}
