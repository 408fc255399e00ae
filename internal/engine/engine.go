// Package engine searches chess positions: iterative deepening negamax with
// alpha-beta pruning, a shared transposition table and optional lazy SMP
// helper workers.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/movegen"
)

// DefaultDepth is the depth searched when a Budget sets no limit at all.
const DefaultDepth = 6

// Options configures an Engine.
type Options struct {
	HashMB      int       // transposition table size, default 64
	Threads     int       // search workers, default 1
	Evaluator   Evaluator // default PieceSquare
	PersistHash bool      // keep the table between searches
	Logger      *zerolog.Logger
}

// Budget limits a search. A zero field is no limit on that axis; when both
// are zero DefaultDepth applies.
type Budget struct {
	MaxDepth int
	MaxTime  time.Duration
}

// Result is the outcome of a search. Depth is the last fully completed
// iteration, or 0 when none completed and Move is simply the first legal move.
type Result struct {
	Move    board.Move
	Score   int
	Depth   int
	Nodes   uint64
	Elapsed time.Duration
	PV      []board.Move
}

// SearchInfo is reported after each completed iteration.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
	HashFull int
}

// Engine owns a transposition table and a set of workers. Searches on one
// Engine are serialized; Stop may be called from any goroutine.
type Engine struct {
	gen  *movegen.Generator
	eval Evaluator
	tt   *TranspositionTable
	opts Options
	log  zerolog.Logger

	// OnInfo, if set, is called from the searching goroutine after every
	// completed depth.
	OnInfo func(SearchInfo)

	mu          sync.Mutex
	workers     []*worker
	stop        atomic.Bool
	helpersDone atomic.Bool
}

// New returns an engine that generates moves with gen.
func New(gen *movegen.Generator, opts Options) *Engine {
	if opts.HashMB <= 0 {
		opts.HashMB = 64
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.Evaluator == nil {
		opts.Evaluator = PieceSquare{}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "engine").Logger()
	}

	e := &Engine{
		gen:  gen,
		eval: opts.Evaluator,
		tt:   NewTranspositionTable(opts.HashMB),
		opts: opts,
		log:  log,
	}
	for i := 0; i < opts.Threads; i++ {
		e.workers = append(e.workers, newWorker(i, e))
	}
	return e
}

// Generator returns the move generator the engine searches with.
func (e *Engine) Generator() *movegen.Generator {
	return e.gen
}

// Evaluate returns the static evaluation of pos for the side to move.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.eval.Evaluate(pos)
}

// TT exposes the transposition table.
func (e *Engine) TT() *TranspositionTable {
	return e.tt
}

// ClearHash empties the transposition table.
func (e *Engine) ClearHash() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
}

// Stop ends the running search, if any. The search still returns its best
// completed result.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Search searches pos with no game history.
func (e *Engine) Search(pos board.Position, budget Budget) Result {
	return e.SearchFrom(pos, nil, budget)
}

// SearchFrom searches pos. history holds the hashes of the positions that led
// to pos, oldest first, and is used for repetition detection.
func (e *Engine) SearchFrom(pos board.Position, history []uint64, budget Budget) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	tm := newTimeManager(budget.MaxTime)
	maxDepth := budget.MaxDepth
	switch {
	case maxDepth <= 0 && budget.MaxTime <= 0:
		maxDepth = DefaultDepth
	case maxDepth <= 0 || maxDepth > MaxPly-1:
		maxDepth = MaxPly - 1
	}

	root := e.gen.LegalMoves(pos)
	if len(root) == 0 {
		score := 0
		if e.gen.InCheck(&pos) {
			score = -MateScore
		}
		return Result{Score: score, Elapsed: tm.elapsed()}
	}

	e.stop.Store(false)
	e.helpersDone.Store(false)
	if !e.opts.PersistHash {
		e.tt.Clear()
	}
	e.tt.NewSearch()

	for _, w := range e.workers {
		w.prepare(pos, history, tm)
	}

	var helpers errgroup.Group
	for _, w := range e.workers[1:] {
		helpers.Go(func() error {
			// Helpers start on alternating depths so they fill the table
			// ahead of the main worker instead of duplicating it.
			w.deepen(1+w.id%2, maxDepth, nil)
			return nil
		})
	}

	lead := e.workers[0]
	last, ok := lead.deepen(1, maxDepth, func(it iteration) {
		info := SearchInfo{
			Depth:    it.depth,
			Score:    it.score,
			Nodes:    lead.nodes,
			Elapsed:  tm.elapsed(),
			PV:       it.pv,
			HashFull: e.tt.HashFull(),
		}
		e.log.Debug().
			Int("depth", info.Depth).
			Str("score", ScoreString(info.Score)).
			Uint64("nodes", info.Nodes).
			Dur("elapsed", info.Elapsed).
			Str("pv", pvString(info.PV)).
			Msg("iteration")
		if e.OnInfo != nil {
			e.OnInfo(info)
		}
	})
	e.helpersDone.Store(true)
	_ = helpers.Wait()

	res := Result{Nodes: e.nodes(), Elapsed: tm.elapsed()}
	if ok && len(last.pv) > 0 {
		res.Move = last.pv[0]
		res.Score = last.score
		res.Depth = last.depth
		res.PV = last.pv
	} else {
		res.Move = root[0]
		res.Score = e.eval.Evaluate(&pos)
	}

	e.log.Info().
		Str("move", res.Move.String()).
		Str("score", ScoreString(res.Score)).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Dur("elapsed", res.Elapsed).
		Int("threads", len(e.workers)).
		Int("hashfull", e.tt.HashFull()).
		Float64("tt_hit_rate", e.tt.HitRate()).
		Msg("search finished")
	return res
}

// nodes sums the node counters of all workers. Only valid once every
// worker has returned.
func (e *Engine) nodes() uint64 {
	var n uint64
	for _, w := range e.workers {
		n += w.nodes
	}
	return n
}

func pvString(pv []board.Move) string {
	var b []byte
	for i, m := range pv {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, m.String()...)
	}
	return string(b)
}
