package eval

// pawnEntry caches the pawn-structure terms of one pawn skeleton.
type pawnEntry struct {
	key       uint64
	structure [2]int16 // per color, before weighting
	passed    [2]bool
	valid     bool
}

// PawnCache memoizes pawn-structure analysis keyed by the pawn key.
// It is not safe for concurrent use.
type PawnCache struct {
	entries []pawnEntry
	mask    uint64
	hits    uint64
	probes  uint64
}

// NewPawnCache creates a cache with the given size in KB, rounded down to a
// power-of-two number of entries.
func NewPawnCache(sizeKB int) *PawnCache {
	const entrySize = 24
	numEntries := sizeKB * 1024 / entrySize

	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &PawnCache{
		entries: make([]pawnEntry, size),
		mask:    uint64(size - 1),
	}
}

func (pc *PawnCache) probe(key uint64) (pawnEntry, bool) {
	pc.probes++
	entry := pc.entries[key&pc.mask]
	if entry.valid && entry.key == key {
		pc.hits++
		return entry, true
	}
	return pawnEntry{}, false
}

func (pc *PawnCache) store(entry pawnEntry) {
	entry.valid = true
	pc.entries[entry.key&pc.mask] = entry
}

// Clear empties the cache.
func (pc *PawnCache) Clear() {
	clear(pc.entries)
	pc.hits, pc.probes = 0, 0
}

// HitRate returns the fraction of probes that found an entry.
func (pc *PawnCache) HitRate() float64 {
	if pc.probes == 0 {
		return 0
	}
	return float64(pc.hits) / float64(pc.probes)
}
