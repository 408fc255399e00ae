package engine

import (
	"github.com/hailam/athena/internal/board"
)

// worker runs the search on a private position copy. All per-ply state lives
// in fixed arrays, so the recursion itself does not allocate.
type worker struct {
	id     int
	engine *Engine
	tm     timeManager

	pos    board.Position
	undo   [MaxPly]board.UndoInfo
	moves  [MaxPly]board.MoveList
	hashes []uint64 // game history followed by the search path, current position last

	pv    [MaxPly][MaxPly]board.Move
	pvLen [MaxPly]int

	ord     orderer
	nodes   uint64
	aborted bool
}

func newWorker(id int, e *Engine) *worker {
	return &worker{id: id, engine: e}
}

// prepare loads the root position and history for a new search.
func (w *worker) prepare(pos board.Position, history []uint64, tm timeManager) {
	w.pos = pos
	w.tm = tm
	w.nodes = 0
	w.aborted = false
	w.ord.reset()

	if cap(w.hashes) < len(history)+MaxPly+1 {
		w.hashes = make([]uint64, 0, len(history)+MaxPly+1)
	}
	w.hashes = append(w.hashes[:0], history...)
	if n := len(w.hashes); n == 0 || w.hashes[n-1] != pos.Hash {
		w.hashes = append(w.hashes, pos.Hash)
	}
}

// stopped polls the stop conditions every 2048 nodes.
func (w *worker) stopped() bool {
	if !w.aborted && w.nodes&2047 == 0 {
		w.poll()
	}
	return w.aborted
}

func (w *worker) poll() {
	e := w.engine
	if e.stop.Load() || (w.id > 0 && e.helpersDone.Load()) || w.tm.expired() {
		w.aborted = true
	}
}

func (w *worker) push(m board.Move, ply int) {
	w.undo[ply] = w.pos.MakeMove(m)
	w.hashes = append(w.hashes, w.pos.Hash)
}

func (w *worker) pop(ply int) {
	w.pos.UnmakeMove(w.undo[ply])
	w.hashes = w.hashes[:len(w.hashes)-1]
}

func (w *worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 || w.pos.IsInsufficientMaterial() {
		return true
	}
	return w.isRepetition()
}

// isRepetition looks back over the reversible plies only: a capture or pawn
// move resets the halfmove clock and no earlier position can recur.
func (w *worker) isRepetition() bool {
	n := len(w.hashes)
	key := w.pos.Hash
	oldest := max(0, n-1-w.pos.HalfMoveClock)
	for i := n - 3; i >= oldest; i -= 2 {
		if w.hashes[i] == key {
			return true
		}
	}
	return false
}

func (w *worker) updatePV(ply int, m board.Move) {
	next := ply + 1
	w.pv[ply][ply] = m
	copy(w.pv[ply][next:w.pvLen[next]], w.pv[next][next:w.pvLen[next]])
	w.pvLen[ply] = w.pvLen[next]
}

func (w *worker) rootPV() []board.Move {
	pv := make([]board.Move, w.pvLen[0])
	copy(pv, w.pv[0][:w.pvLen[0]])
	return pv
}

func (w *worker) negamax(depth, ply, alpha, beta int) int {
	w.pvLen[ply] = ply
	if w.stopped() {
		return 0
	}
	w.nodes++

	e := w.engine
	pos := &w.pos

	if ply > 0 && w.isDraw() {
		return 0
	}

	inCheck := e.gen.InCheck(pos)
	if depth <= 0 || ply >= MaxPly-1 {
		if !e.gen.HasLegalMoves(pos) {
			if inCheck {
				return -MateScore + ply
			}
			return 0
		}
		return e.eval.Evaluate(pos)
	}

	ttMove := board.NoMove
	if entry, ok := e.tt.Probe(pos.Hash); ok {
		ttMove = entry.Move
		if ply > 0 && int(entry.Depth) >= depth {
			score := fromTT(int(entry.Score), ply)
			switch entry.Bound {
			case BoundExact:
				return score
			case BoundLower:
				alpha = max(alpha, score)
			case BoundUpper:
				beta = min(beta, score)
			}
			if alpha >= beta {
				return score
			}
		}
	}

	ml := &w.moves[ply]
	e.gen.Legal(pos, ml)
	if ml.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	w.ord.score(pos, ml, ply, ttMove)
	us := pos.SideToMove
	origAlpha := alpha
	best := -Infinity
	bestMove := board.NoMove

	for i := 0; i < ml.Len(); i++ {
		m := w.ord.pick(ml, ply, i)

		w.push(m, ply)
		score := -w.negamax(depth-1, ply+1, -beta, -alpha)
		w.pop(ply)

		if w.aborted {
			return 0
		}
		if score > best {
			best = score
			bestMove = m
			if score > alpha {
				alpha = score
				w.updatePV(ply, m)
				if alpha >= beta {
					w.ord.cutoff(us, m, ply, depth)
					break
				}
			}
		}
	}

	bound := BoundExact
	switch {
	case best <= origAlpha:
		bound = BoundUpper
	case best >= beta:
		bound = BoundLower
	}
	e.tt.Store(pos.Hash, depth, toTT(best, ply), bound, bestMove)
	return best
}

// iteration is the outcome of one completed depth.
type iteration struct {
	depth int
	score int
	pv    []board.Move
}

// deepen runs iterative deepening from startDepth up to maxDepth and returns
// the last completed iteration. report, if set, sees every completed depth.
func (w *worker) deepen(startDepth, maxDepth int, report func(iteration)) (iteration, bool) {
	var last iteration
	completed := false

	for depth := startDepth; depth <= maxDepth; depth++ {
		if completed && !w.tm.startNext() {
			break
		}
		if w.poll(); w.aborted {
			break
		}
		score := w.negamax(depth, 0, -Infinity, Infinity)
		if w.aborted {
			break
		}

		last = iteration{depth: depth, score: score, pv: w.rootPV()}
		completed = true
		if report != nil {
			report(last)
		}
		if IsMateScore(score) {
			break
		}
	}
	return last, completed
}
