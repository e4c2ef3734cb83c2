package engine

import (
	"testing"

	"github.com/matryer/is"

	"github.com/hailam/humanchess/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()
	move := board.NewMove(board.E2, board.E4)

	_, found := tt.Probe(pos.Hash)
	is.True(!found) // empty table misses

	tt.Store(pos.Hash, 5, 42, TTExact, move)
	entry, found := tt.Probe(pos.Hash)
	is.True(found)
	is.Equal(entry.BestMove, move)
	is.Equal(int(entry.Score), 42)
	is.Equal(int(entry.Depth), 5)
	is.Equal(entry.Flag, TTExact)
	is.Equal(tt.HitRate(), 50.0) // one miss, one hit
}

func TestTTAlwaysReplace(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1)
	size := uint64(tt.Size())

	tt.Store(7, 9, 100, TTExact, board.NewMove(board.G1, board.F3))
	tt.Store(7+size, 1, -30, TTUpperBound, board.NewMove(board.B1, board.C3))

	_, found := tt.Probe(7)
	is.True(!found) // shallower entry in the same slot evicts the deeper one

	entry, found := tt.Probe(7 + size)
	is.True(found)
	is.Equal(int(entry.Score), -30)
	is.Equal(entry.Flag, TTUpperBound)
}

func TestTTNegativeScores(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1)

	tt.Store(99, 3, -MateScore+4, TTLowerBound, board.NoMove)
	entry, found := tt.Probe(99)
	is.True(found)
	is.Equal(int(entry.Score), -MateScore+4)
	is.Equal(entry.BestMove, board.NoMove)
}

func TestTTResizeKeepsEntries(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1)
	keys := []uint64{1, 12345, 0xDEADBEEF, 1 << 40}
	for i, k := range keys {
		tt.Store(k, i+1, i*10, TTExact, board.NoMove)
	}

	tt.Resize(2)
	is.True(tt.Size() > 65536)
	for i, k := range keys {
		entry, found := tt.Probe(k)
		is.True(found)
		is.Equal(int(entry.Depth), i+1)
		is.Equal(int(entry.Score), i*10)
	}
}

func TestTTClear(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1)
	for k := uint64(0); k < 1000; k++ {
		tt.Store(k, 1, 0, TTExact, board.NoMove)
	}
	is.Equal(tt.HashFull(), 1000)

	tt.Clear()
	is.Equal(tt.HashFull(), 0)
	_, found := tt.Probe(3)
	is.True(!found)
}
