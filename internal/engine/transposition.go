package engine

import (
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/hailam/humanchess/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota + 1 // Exact score
	TTLowerBound                   // Failed high (beta cutoff)
	TTUpperBound                   // Failed low
)

const entrySize = 16

// TTEntry is one slot of the transposition table.
type TTEntry struct {
	Key      uint64
	BestMove board.Move
	Score    int16
	Depth    int8
	Flag     TTFlag
}

func (e TTEntry) valid() bool {
	return e.Flag != 0
}

// TranspositionTable maps position keys to search results. Slots are
// indexed by key modulo the table size and always overwritten. The table
// survives between searches and is not safe for concurrent use.
type TranspositionTable struct {
	entries []TTEntry
	hits    uint64
	probes  uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	return &TranspositionTable{entries: make([]TTEntry, numEntries(sizeMB))}
}

// numEntries converts a megabyte budget into a slot count, capped at half
// of the physical memory.
func numEntries(sizeMB int) uint64 {
	if sizeMB < 1 {
		sizeMB = 1
	}
	n := uint64(sizeMB) * 1024 * 1024 / entrySize
	if total := memory.TotalMemory(); total > 0 && n > total/2/entrySize {
		n = total / 2 / entrySize
		log.Warn().Int("requested-mb", sizeMB).Uint64("total-memory", total).Msg("transposition-table-capped")
	}
	if n == 0 {
		n = 1
	}
	log.Debug().Uint64("num-elems", n).Msg("transposition-table-size")
	return n
}

func (tt *TranspositionTable) index(key uint64) uint64 {
	return key % uint64(len(tt.entries))
}

// Probe looks up a position in the transposition table.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	tt.probes++
	entry := tt.entries[tt.index(key)]
	if entry.valid() && entry.Key == key {
		tt.hits++
		return entry, true
	}
	return TTEntry{}, false
}

// Store writes an entry, replacing whatever occupied the slot.
func (tt *TranspositionTable) Store(key uint64, depth, score int, flag TTFlag, bestMove board.Move) {
	tt.entries[tt.index(key)] = TTEntry{
		Key:      key,
		BestMove: bestMove,
		Score:    int16(score),
		Depth:    int8(depth),
		Flag:     flag,
	}
}

// Resize reallocates the table and re-indexes the surviving entries.
func (tt *TranspositionTable) Resize(sizeMB int) {
	old := tt.entries
	tt.entries = make([]TTEntry, numEntries(sizeMB))
	for _, e := range old {
		if e.valid() {
			tt.entries[tt.index(e.Key)] = e
		}
	}
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.hits, tt.probes = 0, 0
}

// HashFull returns the permille of the first thousand slots in use.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].valid() {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of slots in the table.
func (tt *TranspositionTable) Size() int {
	return len(tt.entries)
}
