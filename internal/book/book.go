// Package book holds opening repertoires: weighted move lists keyed by
// position hash, so the engine can answer known openings the way a player
// answers from memory.
package book

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"lukechampine.com/frand"

	"github.com/hailam/humanchess/internal/board"
)

// ErrCorruptBook is returned for truncated book files.
var ErrCorruptBook = errors.New("corrupt book")

// recordSize is the on-disk size of one entry:
// 8 bytes key, 2 bytes move, 2 bytes weight, 4 bytes reserved, big-endian.
const recordSize = 16

// Entry represents a single book entry.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book represents an opening book.
type Book struct {
	entries map[uint64][]Entry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]Entry),
	}
}

// Add records move in pos, adding weight if the move is already known.
func (b *Book) Add(pos *board.Position, m board.Move, weight uint16) {
	list := b.entries[pos.Hash]
	if i := slices.IndexFunc(list, func(e Entry) bool { return e.Move == m }); i >= 0 {
		list[i].Weight += weight
		return
	}
	b.entries[pos.Hash] = append(list, Entry{Move: m, Weight: weight})
}

// AddLine plays a space-separated line of coordinate moves from the start
// position, adding every move with the given weight.
func (b *Book) AddLine(line string, weight uint16) error {
	pos := board.NewPosition()
	for _, s := range strings.Fields(line) {
		m, err := board.ParseMove(s)
		if err != nil {
			return err
		}
		if !slices.Contains(pos.LegalMoves(), m) {
			return fmt.Errorf("%w: %s in %q", board.ErrInvalidMove, s, line)
		}
		b.Add(&pos, m, weight)
		pos = pos.Apply(m)
	}
	return nil
}

// Load reads a book file.
func Load(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file)
}

// Read loads a book from a stream of fixed-size records.
func Read(r io.Reader) (*Book, error) {
	b := New()
	var rec [recordSize]byte

	for {
		n, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: trailing %d bytes", ErrCorruptBook, n)
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(rec[0:8])
		m := board.Move(binary.BigEndian.Uint16(rec[8:10]))
		weight := binary.BigEndian.Uint16(rec[10:12])
		if m != board.NoMove {
			b.entries[key] = append(b.entries[key], Entry{Move: m, Weight: weight})
		}
	}

	return b, nil
}

// WriteTo writes the book in the format Read expects, keys in ascending order.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	keys := make([]uint64, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var n int64
	var rec [recordSize]byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			binary.BigEndian.PutUint64(rec[0:8], k)
			binary.BigEndian.PutUint16(rec[8:10], uint16(e.Move))
			binary.BigEndian.PutUint16(rec[10:12], e.Weight)
			written, err := w.Write(rec[:])
			n += int64(written)
			if err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Probe picks a legal book move for pos, weighted by entry weight.
func (b *Book) Probe(pos *board.Position, rng *frand.RNG) (board.Move, bool) {
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}

	total := 0
	for _, e := range entries {
		total += int(e.Weight)
	}
	if total == 0 {
		// All weights are 0, just pick the first
		return entries[0].Move, true
	}

	r := rng.Intn(total)
	for _, e := range entries {
		r -= int(e.Weight)
		if r < 0 {
			return e.Move, true
		}
	}
	return entries[0].Move, true
}

// ProbeAll returns the legal book moves for the position, heaviest first.
func (b *Book) ProbeAll(pos *board.Position) []Entry {
	if b == nil {
		return nil
	}

	legal := pos.LegalMoves()
	result := make([]Entry, 0, len(b.entries[pos.Hash]))
	for _, e := range b.entries[pos.Hash] {
		if slices.Contains(legal, e.Move) {
			result = append(result, e)
		}
	}
	slices.SortStableFunc(result, func(a, b Entry) int {
		return int(b.Weight) - int(a.Weight)
	})
	return result
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
