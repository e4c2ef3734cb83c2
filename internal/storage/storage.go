package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a lookup has no stored value.
var ErrNotFound = errors.New("storage: not found")

// Storage keys
const (
	keyOptions        = "options"
	keyStats          = "stats"
	keyAnalysisPrefix = "analysis/"
)

// EngineOptions are the user-tunable engine settings remembered between runs.
type EngineOptions struct {
	HashMB         int       `json:"hash_mb"`
	Seed           uint64    `json:"seed"`
	CandidateRate  int       `json:"candidate_rate"`
	MaxDepth       int       `json:"max_depth"`
	Style          string    `json:"style"`
	VerbalPV       bool      `json:"verbal_pv"`
	ShowImbalances bool      `json:"show_imbalances"`
	OwnBook        bool      `json:"own_book"`
	BookFile       string    `json:"book_file,omitempty"`
	Saved          time.Time `json:"saved"`
}

// Stats accumulates figures over every recorded search.
type Stats struct {
	Searches     int            `json:"searches"`
	Nodes        uint64         `json:"nodes"`
	TotalTime    time.Duration  `json:"total_time"`
	DeepestDepth int            `json:"deepest_depth"`
	Stopped      int            `json:"stopped"`
	ByStyle      map[string]int `json:"by_style"`
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{ByStyle: make(map[string]int)}
}

// NodesPerSecond returns the average search speed.
func (s *Stats) NodesPerSecond() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.Nodes) / s.TotalTime.Seconds()
}

// AnalysisRecord is the stored outcome of one search.
type AnalysisRecord struct {
	FEN      string        `json:"fen"`
	BestMove string        `json:"best_move"`
	Score    int           `json:"score"` // White's point of view
	Depth    int           `json:"depth"`
	Nodes    uint64        `json:"nodes"`
	Time     time.Duration `json:"time"`
	PV       []string      `json:"pv,omitempty"`
	Style    string        `json:"style"`
	Stopped  bool          `json:"stopped"`
	Recorded time.Time     `json:"recorded"`
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db *badger.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*Storage, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Storage, error) {
	opts.Logger = badgerLogger{}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}
	log.Debug().Str("dir", opts.Dir).Bool("in-memory", opts.InMemory).Msg("storage-opened")
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveOptions saves the engine settings.
func (s *Storage) SaveOptions(opts EngineOptions) error {
	opts.Saved = time.Now()
	return s.put(keyOptions, opts)
}

// LoadOptions loads the engine settings. ErrNotFound means nothing was saved yet.
func (s *Storage) LoadOptions() (EngineOptions, error) {
	var opts EngineOptions
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, keyOptions, &opts)
	})
	return opts, err
}

// Stats loads the search statistics, returning empty statistics if none exist.
func (s *Storage) Stats() (*Stats, error) {
	stats := NewStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, keyStats, stats)
	})
	if errors.Is(err, ErrNotFound) {
		return stats, nil
	}
	return stats, err
}

// RecordAnalysis stores a search outcome and folds it into the statistics.
// A stored record for the same position is only replaced by one searched at
// least as deep.
func (s *Storage) RecordAnalysis(rec AnalysisRecord) error {
	if rec.Recorded.IsZero() {
		rec.Recorded = time.Now()
	}
	key := analysisKey(rec.FEN)

	return s.db.Update(func(txn *badger.Txn) error {
		stats := NewStats()
		if err := get(txn, keyStats, stats); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		stats.Searches++
		stats.Nodes += rec.Nodes
		stats.TotalTime += rec.Time
		stats.DeepestDepth = max(stats.DeepestDepth, rec.Depth)
		if rec.Stopped {
			stats.Stopped++
		}
		if rec.Style != "" {
			stats.ByStyle[rec.Style]++
		}
		if err := set(txn, keyStats, stats); err != nil {
			return err
		}

		var prev AnalysisRecord
		switch err := get(txn, key, &prev); {
		case err == nil && prev.Depth > rec.Depth:
			return nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}
		return set(txn, key, rec)
	})
}

// LookupAnalysis returns the stored record for the position in fen. The
// move counters do not take part in the lookup.
func (s *Storage) LookupAnalysis(fen string) (AnalysisRecord, error) {
	var rec AnalysisRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, analysisKey(fen), &rec)
	})
	return rec, err
}

// AnalysisCount returns the number of stored analysis records.
func (s *Storage) AnalysisCount() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(keyAnalysisPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// analysisKey hashes the placement, side, castling and en passant fields.
func analysisKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return fmt.Sprintf("%s%016x", keyAnalysisPrefix, xxhash.Sum64String(strings.Join(fields, " ")))
}

func (s *Storage) put(key string, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return set(txn, key, v)
	})
}

func set(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func get(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// badgerLogger routes badger's log output through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	log.Error().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	log.Warn().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	log.Debug().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Debugf(format string, args ...any) {
	log.Trace().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}
