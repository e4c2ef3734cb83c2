package book

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/hailam/humanchess/internal/board"
)

func seeded() *frand.RNG {
	return frand.NewCustom(make([]byte, 32), 1024, 12)
}

func TestDefaultRepertoire(t *testing.T) {
	b := Default()
	require.Greater(t, b.Size(), 50)

	pos := board.NewPosition()
	entries := b.ProbeAll(&pos)
	moves := make([]string, len(entries))
	for i, e := range entries {
		moves[i] = e.Move.String()
	}
	assert.Equal(t, []string{"e2e4", "d2d4", "c2c4", "g1f3"}, moves)
	assert.Equal(t, uint16(180), entries[0].Weight)
}

func TestProbeFollowsLines(t *testing.T) {
	b := Default()
	rng := seeded()

	pos := board.NewPosition()
	for ply := 0; ply < 6; ply++ {
		m, ok := b.Probe(&pos, rng)
		require.True(t, ok, "ply %d", ply)
		assert.Contains(t, pos.LegalMoves(), m)
		pos = pos.Apply(m)
	}
}

func TestBookMiss(t *testing.T) {
	b := Default()
	pos, err := board.ParseFEN("8/8/8/8/8/8/8/K6k w - - 0 1")
	require.NoError(t, err)

	m, found := b.Probe(&pos, seeded())
	assert.False(t, found)
	assert.Equal(t, board.NoMove, m)

	var empty *Book
	assert.Nil(t, empty.ProbeAll(&pos))
	assert.Zero(t, empty.Size())
}

func TestAddLineRejectsIllegalMoves(t *testing.T) {
	b := New()
	assert.ErrorIs(t, b.AddLine("e2e4 e2e4", 1), board.ErrInvalidMove)
	assert.Error(t, b.AddLine("e2e4 zz", 1))
}

func TestWriteRead(t *testing.T) {
	b := New()
	require.NoError(t, b.AddLine("e2e4 e7e5", 3))
	require.NoError(t, b.AddLine("e2e4 c7c5", 1))

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3*recordSize), n)

	loaded, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, b.Size(), loaded.Size())

	pos := board.NewPosition()
	pos = pos.Apply(board.NewMove(board.E2, board.E4))
	entries := loaded.ProbeAll(&pos)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{board.NewMove(board.E7, board.E5), 3}, entries[0])
	assert.Equal(t, Entry{board.NewMove(board.C7, board.C5), 1}, entries[1])
}

func TestReadTruncated(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, recordSize+5)))
	assert.ErrorIs(t, err, ErrCorruptBook)
}

func TestProbeWeights(t *testing.T) {
	b := New()
	pos := board.NewPosition()
	heavy := board.NewMove(board.E2, board.E4)
	light := board.NewMove(board.A2, board.A3)
	b.Add(&pos, heavy, 99)
	b.Add(&pos, light, 1)

	rng := seeded()
	counts := map[board.Move]int{}
	for i := 0; i < 1000; i++ {
		m, ok := b.Probe(&pos, rng)
		require.True(t, ok)
		counts[m]++
	}
	assert.Greater(t, counts[heavy], 900)
}
