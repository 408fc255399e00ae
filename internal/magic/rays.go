package magic

import "github.com/hailam/athena/internal/board"

type direction struct{ df, dr int }

var (
	rookDirections   = [4]direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDirections = [4]direction{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

func directions(kind Kind) [4]direction {
	if kind == Bishop {
		return bishopDirections
	}
	return rookDirections
}

// SlowAttacks traces every ray from sq until it leaves the board or hits a
// blocker. The blocking square is included.
func SlowAttacks(kind Kind, sq board.Square, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	for _, d := range directions(kind) {
		for f, r := sq.File()+d.df, sq.Rank()+d.dr; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d.df, r+d.dr {
			s := board.NewSquare(f, r)
			attacks |= board.SquareBB(s)
			if occupied.Has(s) {
				break
			}
		}
	}
	return attacks
}

// RelevantMask returns the squares whose occupancy can change the attack set
// of kind on sq: the empty-board rays without their last square.
func RelevantMask(kind Kind, sq board.Square) board.Bitboard {
	// Edges the square stands on stay; rays running along them end in a
	// corner, which the perpendicular edge removes.
	edges := (board.Rank1 | board.Rank8) &^ board.RankMask[sq.Rank()]
	edges |= (board.FileA | board.FileH) &^ board.FileMask[sq.File()]
	return SlowAttacks(kind, sq, board.Empty) &^ edges
}

// Subsets enumerates every subset of mask with the carry-rippler trick,
// starting with the empty set.
func Subsets(mask board.Bitboard) []board.Bitboard {
	out := make([]board.Bitboard, 0, 1<<mask.PopCount())
	for subset := board.Empty; ; {
		out = append(out, subset)
		subset = (subset - mask) & mask
		if subset == 0 {
			break
		}
	}
	return out
}
