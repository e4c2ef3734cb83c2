// Package config loads humanchess settings from defaults, an optional
// config file, HUMANCHESS_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hailam/humanchess/internal/eval"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const envPrefix = "HUMANCHESS"

type Config struct {
	HashMB        int
	Threads       int
	Seed          uint64
	CandidateRate int
	MaxDepth      int
	MoveTime      time.Duration
	Style         string
	DataDir       string
	Persist       bool
	OwnBook       bool
	BookFile      string
	LogLevel      string
	ConfigFile    string

	// Args holds the positional arguments left after flag parsing.
	Args []string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HashMB:        16,
		Threads:       1,
		Seed:          12345,
		CandidateRate: 30,
		MaxDepth:      4,
		MoveTime:      30 * time.Second,
		Style:         eval.DefaultStyle.Name,
		Persist:       true,
		LogLevel:      "info",
	}
}

// Load fills c from args, the environment and the config file named by
// --config. Fields already set in c act as defaults.
func (c *Config) Load(args []string) error {
	fs := pflag.NewFlagSet("humanchess", pflag.ContinueOnError)
	fs.Int("hash", c.HashMB, "transposition table size in MB")
	fs.Int("threads", c.Threads, "search threads (accepted, the search is single-threaded)")
	fs.Uint64("seed", c.Seed, "seed for the candidate move filter")
	fs.Int("candidate-rate", c.CandidateRate, "percent chance to consider a quiet piece move")
	fs.Int("max-depth", c.MaxDepth, "default search depth for go without limits")
	fs.Duration("movetime", c.MoveTime, "default think time for go without limits")
	fs.String("style", c.Style, "playing style: "+strings.Join(eval.StyleNames(), ", "))
	fs.String("data-dir", c.DataDir, "directory for the analysis database")
	fs.Bool("persist", c.Persist, "store options and analysis in the database")
	fs.Bool("own-book", c.OwnBook, "answer known openings from the book")
	fs.String("book", c.BookFile, "opening book file (default: built-in repertoire)")
	fs.String("log-level", c.LogLevel, "trace, debug, info, warn or error")
	fs.String("config", c.ConfigFile, "optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		c.ConfigFile = file
	}

	c.HashMB = v.GetInt("hash")
	c.Threads = v.GetInt("threads")
	c.Seed = v.GetUint64("seed")
	c.CandidateRate = v.GetInt("candidate-rate")
	c.MaxDepth = v.GetInt("max-depth")
	c.MoveTime = v.GetDuration("movetime")
	c.Style = v.GetString("style")
	c.DataDir = v.GetString("data-dir")
	c.Persist = v.GetBool("persist")
	c.OwnBook = v.GetBool("own-book")
	c.BookFile = v.GetString("book")
	c.LogLevel = v.GetString("log-level")
	c.Args = fs.Args()

	return c.Validate()
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if c.HashMB < 1 {
		return fmt.Errorf("%w: hash must be at least 1 MB, got %d", ErrInvalidConfig, c.HashMB)
	}
	if c.CandidateRate < 0 || c.CandidateRate > 100 {
		return fmt.Errorf("%w: candidate-rate must be within 0..100, got %d", ErrInvalidConfig, c.CandidateRate)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max-depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if _, err := eval.ParseStyle(c.Style); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level returns the zerolog level named by LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	return zerolog.ParseLevel(strings.ToLower(c.LogLevel))
}
