package magic

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/athena/internal/board"
)

const (
	// DefaultBudget is the number of candidates tried per square.
	DefaultBudget = 1 << 22

	// DefaultSeed seeds the candidate generators when Options.Seed is zero.
	DefaultSeed = 0x3A7E4A5C0FFEE123
)

// Cache persists multipliers between runs. Loaded values are never trusted:
// each one is tested against the square's subsets before use.
type Cache interface {
	LoadMagics(kind Kind) (magics [64]uint64, ok bool, err error)
	StoreMagics(kind Kind, magics [64]uint64) error
}

// Options configures Build. The zero value is usable.
type Options struct {
	Workers int    // worker pool size, GOMAXPROCS when <= 0
	Budget  int    // candidates per square, DefaultBudget when 0
	Seed    uint64 // DefaultSeed when 0
	Cache   Cache  // optional
	Logger  *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Budget == 0 {
		o.Budget = DefaultBudget
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Build computes all 128 entries on a bounded worker pool and verifies the
// assembled tables. Each job writes only its own slot, and nothing is
// returned until every job has finished, so callers never see partial
// tables. The first failure cancels the remaining jobs.
func Build(ctx context.Context, opts Options) (*Tables, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	start := time.Now()

	var cached [2][64]uint64
	var haveCache [2]bool
	if opts.Cache != nil {
		for _, kind := range Kinds {
			m, ok, err := opts.Cache.LoadMagics(kind)
			if err != nil {
				log.Warn().Err(err).Stringer("kind", kind).Msg("magic cache load failed")
				continue
			}
			cached[kind], haveCache[kind] = m, ok
		}
	}

	t := &Tables{}
	var fresh [2][64]bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, kind := range Kinds {
		for sq := board.A1; sq <= board.H8; sq++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				f := newFinder(kind, sq)
				if haveCache[kind] {
					if m := cached[kind][sq]; m != 0 && f.try(m) {
						t.entries[kind][sq] = f.entry(m)
						return nil
					}
				}
				e, _, err := f.search(opts.Seed, opts.Budget)
				if err != nil {
					return err
				}
				t.entries[kind][sq] = e
				fresh[kind][sq] = true
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := t.Verify(); err != nil {
		return nil, err
	}

	for _, kind := range Kinds {
		n := 0
		for _, f := range fresh[kind] {
			if f {
				n++
			}
		}
		log.Debug().Stringer("kind", kind).Int("searched", n).Int("cached", 64-n).Msg("magic tables ready")
		if opts.Cache != nil && n > 0 {
			if err := opts.Cache.StoreMagics(kind, t.Magics(kind)); err != nil {
				log.Warn().Err(err).Stringer("kind", kind).Msg("magic cache store failed")
			}
		}
	}

	log.Info().
		Int("workers", opts.Workers).
		Int("slots", t.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("magic tables built")

	return t, nil
}

var (
	initOnce   sync.Once
	initTables *Tables
	initErr    error
)

// Initialize builds the process-wide tables exactly once. Concurrent callers
// block until the first build finishes; every call returns the same handle
// or the same error, and later calls return without building again.
func Initialize(opts Options) (*Tables, error) {
	initOnce.Do(func() {
		initTables, initErr = Build(context.Background(), opts)
		if initErr != nil {
			initErr = fmt.Errorf("initialize tables: %w", initErr)
		}
	})
	return initTables, initErr
}
