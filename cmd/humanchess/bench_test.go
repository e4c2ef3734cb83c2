package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/humanchess/internal/config"
)

func TestBench(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 2
	cfg.Threads = 3
	cfg.HashMB = 1

	var out bytes.Buffer
	require.NoError(t, runBench(context.Background(), cfg, &out))

	got := out.String()
	assert.Contains(t, got, "Nodes: ")
	assert.Contains(t, got, "a1a8") // back-rank mate is found at any rate
	assert.Equal(t, len(benchPositions)+3, strings.Count(got, "\n"))
}

func TestBenchCanceled(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 2
	cfg.HashMB = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	assert.ErrorIs(t, runBench(ctx, cfg, &out), context.Canceled)
	assert.Contains(t, out.String(), "Nodes: ")
}

func TestRunUnknownMode(t *testing.T) {
	cfg := config.Default()
	cfg.Args = []string{"serve"}
	assert.Error(t, run(context.Background(), cfg))
}

func TestEngineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 9
	cfg.CandidateRate = 70
	opts := engineOptions(cfg)
	assert.Equal(t, uint64(9), opts.Seed)
	assert.Equal(t, 70, opts.CandidateRate)
	assert.Equal(t, cfg.HashMB, opts.HashMB)
}
