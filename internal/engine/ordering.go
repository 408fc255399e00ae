package engine

import "github.com/hailam/athena/internal/board"

// Ordering tiers. Everything inside a tier is ranked by a smaller secondary
// score.
const (
	ttMoveScore    = 10_000_000
	captureBase    = 1_000_000
	promotionBase  = 900_000
	killerScore1   = 800_000
	killerScore2   = 790_000
	historyCeiling = 500_000
)

// mvvLva[victim][attacker]: most valuable victim first, cheapest attacker
// breaks ties.
var mvvLva = [6][6]int{
	{15, 14, 14, 13, 12, 11},
	{25, 24, 24, 23, 22, 21},
	{35, 34, 34, 33, 32, 31},
	{45, 44, 44, 43, 42, 41},
	{55, 54, 54, 53, 52, 51},
	{0, 0, 0, 0, 0, 0},
}

// orderer holds the per-worker move ordering heuristics.
type orderer struct {
	killers [MaxPly][2]board.Move
	history [2][64][64]int
	scores  [MaxPly][board.MaxMoves]int
}

func (o *orderer) reset() {
	o.killers = [MaxPly][2]board.Move{}
	o.history = [2][64][64]int{}
}

// score fills the score row for ply. ttMove only counts when it is in ml.
func (o *orderer) score(pos *board.Position, ml *board.MoveList, ply int, ttMove board.Move) {
	row := &o.scores[ply]
	us := pos.SideToMove
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		switch {
		case m == ttMove:
			row[i] = ttMoveScore
		case m.IsCapture():
			victim := board.Pawn
			if !m.IsEnPassant() {
				victim = pos.PieceAt(m.To()).Type()
			}
			attacker := pos.PieceAt(m.From()).Type()
			row[i] = captureBase + mvvLva[victim][attacker]*1000
		case m.IsPromotion():
			row[i] = promotionBase + int(m.Promotion())
		case m == o.killers[ply][0]:
			row[i] = killerScore1
		case m == o.killers[ply][1]:
			row[i] = killerScore2
		default:
			row[i] = o.history[us][m.From()][m.To()]
		}
	}
}

// pick moves the best remaining move into slot i and returns it.
func (o *orderer) pick(ml *board.MoveList, ply, i int) board.Move {
	row := &o.scores[ply]
	best := i
	for j := i + 1; j < ml.Len(); j++ {
		if row[j] > row[best] {
			best = j
		}
	}
	if best != i {
		ml.Swap(i, best)
		row[i], row[best] = row[best], row[i]
	}
	return ml.Get(i)
}

// cutoff records a quiet move that failed high.
func (o *orderer) cutoff(us board.Color, m board.Move, ply, depth int) {
	if !m.IsQuiet() {
		return
	}
	if o.killers[ply][0] != m {
		o.killers[ply][1] = o.killers[ply][0]
		o.killers[ply][0] = m
	}
	h := &o.history[us][m.From()][m.To()]
	*h += depth * depth
	if *h > historyCeiling {
		for from := range o.history[us] {
			for to := range o.history[us][from] {
				o.history[us][from][to] /= 2
			}
		}
	}
}
