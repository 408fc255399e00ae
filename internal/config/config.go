// Package config loads settings from ATHENA_* environment variables, an
// optional .env file and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/magic"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Engine  EngineConfig
	Magic   MagicConfig
	Service ServiceConfig
	Log     LogConfig
	DataDir string // empty selects the platform data directory
}

type EngineConfig struct {
	HashMB      int
	Threads     int
	Depth       int
	MoveTime    time.Duration
	Evaluator   string
	PersistHash bool
}

type MagicConfig struct {
	Workers int // 0 means GOMAXPROCS
	Budget  int
	Seed    uint64
	Cache   bool
}

type ServiceConfig struct {
	Listen string // line protocol, empty disables
	HTTP   string // JSON API, empty disables
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			HashMB:    64,
			Threads:   1,
			Depth:     engine.DefaultDepth,
			MoveTime:  2 * time.Second,
			Evaluator: "pst",
		},
		Magic: MagicConfig{
			Budget: magic.DefaultBudget,
			Seed:   magic.DefaultSeed,
			Cache:  true,
		},
		Service: ServiceConfig{Listen: "127.0.0.1:7878"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the given .env files (".env" when none are named; missing files
// are skipped) into the process environment without overriding variables
// already set, then builds the configuration from the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv overlays the ATHENA_* variables found by lookup on Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.int("ATHENA_HASH_MB", &c.Engine.HashMB)
	p.int("ATHENA_THREADS", &c.Engine.Threads)
	p.int("ATHENA_DEPTH", &c.Engine.Depth)
	p.millis("ATHENA_MOVETIME_MS", &c.Engine.MoveTime)
	p.str("ATHENA_EVALUATOR", &c.Engine.Evaluator)
	p.bool("ATHENA_PERSIST_HASH", &c.Engine.PersistHash)

	p.int("ATHENA_MAGIC_WORKERS", &c.Magic.Workers)
	p.int("ATHENA_MAGIC_BUDGET", &c.Magic.Budget)
	p.uint64("ATHENA_MAGIC_SEED", &c.Magic.Seed)
	p.bool("ATHENA_MAGIC_CACHE", &c.Magic.Cache)

	p.str("ATHENA_DATA_DIR", &c.DataDir)
	p.str("ATHENA_LISTEN", &c.Service.Listen)
	p.str("ATHENA_HTTP", &c.Service.HTTP)
	p.str("ATHENA_LOG_LEVEL", &c.Log.Level)
	p.bool("ATHENA_LOG_PRETTY", &c.Log.Pretty)

	if p.err != nil {
		return Config{}, p.err
	}
	return c, c.Validate()
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	return v, ok && v != ""
}

func (p *parser) fail(key, v string, err error) {
	p.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) uint64(key string, dst *uint64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) bool(key string, dst *bool) {
	if v, ok := p.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (p *parser) millis(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = time.Duration(ms) * time.Millisecond
	}
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch {
	case c.Engine.HashMB < 1:
		return fmt.Errorf("%w: hash size %d MB", ErrInvalid, c.Engine.HashMB)
	case c.Engine.Threads < 1:
		return fmt.Errorf("%w: %d threads", ErrInvalid, c.Engine.Threads)
	case c.Engine.Depth < 0 || c.Engine.Depth >= engine.MaxPly:
		return fmt.Errorf("%w: depth %d", ErrInvalid, c.Engine.Depth)
	case c.Engine.MoveTime < 0:
		return fmt.Errorf("%w: move time %v", ErrInvalid, c.Engine.MoveTime)
	case c.Magic.Workers < 0:
		return fmt.Errorf("%w: %d magic workers", ErrInvalid, c.Magic.Workers)
	case c.Magic.Budget < 1:
		return fmt.Errorf("%w: magic budget %d", ErrInvalid, c.Magic.Budget)
	}
	if _, err := engine.NewEvaluator(c.Engine.Evaluator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// RegisterFlags binds command-line flags to c. Values already in c are the
// defaults, so flags override the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Engine.HashMB, "hash", c.Engine.HashMB, "transposition table size in MB")
	fs.IntVar(&c.Engine.Threads, "threads", c.Engine.Threads, "search threads")
	fs.IntVar(&c.Engine.Depth, "depth", c.Engine.Depth, "default search depth (0 = time only)")
	fs.DurationVar(&c.Engine.MoveTime, "movetime", c.Engine.MoveTime, "default time per move (0 = depth only)")
	fs.StringVar(&c.Engine.Evaluator, "eval", c.Engine.Evaluator, "evaluator: material or pst")
	fs.BoolVar(&c.Engine.PersistHash, "persist-hash", c.Engine.PersistHash, "keep the hash table between searches")
	fs.IntVar(&c.Magic.Workers, "magic-workers", c.Magic.Workers, "magic table builder pool size (0 = GOMAXPROCS)")
	fs.BoolVar(&c.Magic.Cache, "magic-cache", c.Magic.Cache, "load and store magic multipliers in the data dir")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "data directory")
	fs.StringVar(&c.Service.Listen, "listen", c.Service.Listen, "line protocol address (empty disables)")
	fs.StringVar(&c.Service.HTTP, "http", c.Service.HTTP, "HTTP API address (empty disables)")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level")
	fs.BoolVar(&c.Log.Pretty, "log-pretty", c.Log.Pretty, "human-readable logs")
}

// Budget is the default search budget.
func (c Config) Budget() engine.Budget {
	return engine.Budget{MaxDepth: c.Engine.Depth, MaxTime: c.Engine.MoveTime}
}

// MagicOptions returns the table builder options. cache may be nil.
func (c Config) MagicOptions(cache magic.Cache, log *zerolog.Logger) magic.Options {
	opts := magic.Options{
		Workers: c.Magic.Workers,
		Budget:  c.Magic.Budget,
		Seed:    c.Magic.Seed,
		Logger:  log,
	}
	if c.Magic.Cache && cache != nil {
		opts.Cache = cache
	}
	return opts
}

// EngineOptions returns the engine options; the evaluator name has already
// been checked by Validate.
func (c Config) EngineOptions(log *zerolog.Logger) (engine.Options, error) {
	ev, err := engine.NewEvaluator(c.Engine.Evaluator)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		HashMB:      c.Engine.HashMB,
		Threads:     c.Engine.Threads,
		Evaluator:   ev,
		PersistHash: c.Engine.PersistHash,
		Logger:      log,
	}, nil
}
