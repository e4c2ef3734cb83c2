package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const italian = "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3"

func openTest(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOptionsRoundTrip(t *testing.T) {
	s := openTest(t)

	_, err := s.LoadOptions()
	require.ErrorIs(t, err, ErrNotFound)

	want := EngineOptions{HashMB: 64, Seed: 99, CandidateRate: 45, MaxDepth: 6, Style: "tactical", VerbalPV: true}
	require.NoError(t, s.SaveOptions(want))

	got, err := s.LoadOptions()
	require.NoError(t, err)
	assert.False(t, got.Saved.IsZero())
	got.Saved = time.Time{}
	assert.Equal(t, want, got)
}

func TestRecordAnalysis(t *testing.T) {
	s := openTest(t)

	_, err := s.LookupAnalysis(italian)
	require.ErrorIs(t, err, ErrNotFound)

	rec := AnalysisRecord{
		FEN:      italian,
		BestMove: "g8f6",
		Score:    -12,
		Depth:    4,
		Nodes:    5000,
		Time:     time.Second,
		PV:       []string{"g8f6", "d2d3"},
		Style:    "classical",
	}
	require.NoError(t, s.RecordAnalysis(rec))

	got, err := s.LookupAnalysis(italian)
	require.NoError(t, err)
	assert.Equal(t, "g8f6", got.BestMove)
	assert.Equal(t, []string{"g8f6", "d2d3"}, got.PV)
	assert.False(t, got.Recorded.IsZero())

	// Move counters are not part of the key.
	got, err = s.LookupAnalysis("r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 0 10")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Depth)

	// A shallower search does not replace a deeper one.
	shallow := rec
	shallow.Depth, shallow.BestMove = 2, "f8c5"
	require.NoError(t, s.RecordAnalysis(shallow))
	got, err = s.LookupAnalysis(italian)
	require.NoError(t, err)
	assert.Equal(t, "g8f6", got.BestMove)

	deeper := rec
	deeper.Depth, deeper.BestMove = 5, "f8c5"
	require.NoError(t, s.RecordAnalysis(deeper))
	got, err = s.LookupAnalysis(italian)
	require.NoError(t, err)
	assert.Equal(t, "f8c5", got.BestMove)

	n, err := s.AnalysisCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStats(t *testing.T) {
	s := openTest(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Searches)
	assert.Zero(t, stats.NodesPerSecond())

	require.NoError(t, s.RecordAnalysis(AnalysisRecord{FEN: italian, Depth: 3, Nodes: 1000, Time: time.Second, Style: "classical"}))
	require.NoError(t, s.RecordAnalysis(AnalysisRecord{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", Depth: 7, Nodes: 3000, Time: time.Second, Style: "tactical", Stopped: true}))

	stats, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Searches)
	assert.Equal(t, uint64(4000), stats.Nodes)
	assert.Equal(t, 7, stats.DeepestDepth)
	assert.Equal(t, 1, stats.Stopped)
	assert.Equal(t, map[string]int{"classical": 1, "tactical": 1}, stats.ByStyle)
	assert.InDelta(t, 2000.0, stats.NodesPerSecond(), 0.001)
}

func TestOpenOnDisk(t *testing.T) {
	dir, err := DatabaseDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "db", filepath.Base(dir))

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveOptions(EngineOptions{HashMB: 32}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	opts, err := s.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, 32, opts.HashMB)
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dataDir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, appName, filepath.Base(dataDir))

	dbDir, err := DatabaseDir("")
	require.NoError(t, err)
	_, err = os.Stat(dbDir)
	assert.NoError(t, err)
}
