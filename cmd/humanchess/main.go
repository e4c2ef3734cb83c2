// Command humanchess runs the human-like chess engine as a UCI engine, an
// interactive console or a benchmark.
//
//	humanchess [uci|console|bench] [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/hailam/humanchess/internal/config"
	"github.com/hailam/humanchess/internal/engine"
	"github.com/hailam/humanchess/internal/eval"
	"github.com/hailam/humanchess/internal/storage"
	"github.com/hailam/humanchess/internal/uci"
)

func main() {
	cfg := config.Default()
	if err := cfg.Load(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

// setupLogging sends human-readable logs to stderr; stdout belongs to the protocol.
func setupLogging(cfg config.Config) {
	lvl, _ := cfg.Level()
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func run(ctx context.Context, cfg config.Config) error {
	mode := "uci"
	if len(cfg.Args) > 0 {
		mode = cfg.Args[0]
	}

	if mode == "bench" {
		return runBench(ctx, cfg, os.Stdout)
	}
	if mode != "uci" && mode != "console" {
		return fmt.Errorf("unknown mode %q, want uci, console or bench", mode)
	}

	ev := eval.New()
	if err := ev.SetStyle(cfg.Style); err != nil {
		return err
	}
	eng := engine.New(ev, engineOptions(cfg))

	store := openStorage(cfg)
	if store != nil {
		defer store.Close()
	}

	protocol := uci.New(eng, ev, store, uci.Config{
		DefaultDepth:    cfg.MaxDepth,
		DefaultMoveTime: cfg.MoveTime,
		Threads:         cfg.Threads,
		OwnBook:         cfg.OwnBook,
		BookFile:        cfg.BookFile,
	})
	if store != nil {
		saved, err := store.LoadOptions()
		switch {
		case err == nil:
			protocol.Restore(saved)
			log.Debug().Interface("options", saved).Msg("restored-options")
		case !errors.Is(err, storage.ErrNotFound):
			log.Warn().Err(err).Msg("load-options-failed")
		}
	}

	if mode == "console" {
		return protocol.Console(historyFile(cfg))
	}
	return protocol.Run(ctx, os.Stdin)
}

func engineOptions(cfg config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.HashMB = cfg.HashMB
	opts.Seed = cfg.Seed
	opts.CandidateRate = cfg.CandidateRate
	return opts
}

// openStorage opens the database, or returns nil when persistence is off or
// unavailable. The engine works the same without it.
func openStorage(cfg config.Config) *storage.Storage {
	if !cfg.Persist {
		return nil
	}
	dir, err := storage.DatabaseDir(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("no-database-dir")
		return nil
	}
	store, err := storage.Open(dir)
	if err != nil {
		log.Warn().Err(err).Msg("storage-disabled")
		return nil
	}
	return store
}

func historyFile(cfg config.Config) string {
	dir := cfg.DataDir
	if dir == "" {
		var err error
		if dir, err = storage.DataDir(); err != nil {
			return ""
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "console_history")
}
