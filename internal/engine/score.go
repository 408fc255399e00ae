package engine

import "fmt"

// Score bounds. Mate scores are MateScore minus the distance in plies from the
// root, so a shorter mate always scores higher.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// IsMateScore reports whether score encodes a forced mate for either side.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateIn returns the number of moves to mate encoded in score, negative when
// the side to move is being mated. It returns 0 for non-mate scores.
func MateIn(score int) int {
	switch {
	case score > MateScore-MaxPly:
		return (MateScore - score + 1) / 2
	case score < -MateScore+MaxPly:
		return -(MateScore + score + 1) / 2
	}
	return 0
}

// ScoreString formats a score as "cp N" or "mate N".
func ScoreString(score int) string {
	if IsMateScore(score) {
		return fmt.Sprintf("mate %d", MateIn(score))
	}
	return fmt.Sprintf("cp %d", score)
}

// toTT converts a root-relative mate score into a node-relative one for
// storage; fromTT undoes it at the probing node.
func toTT(score, ply int) int {
	switch {
	case score > MateScore-MaxPly:
		return score + ply
	case score < -MateScore+MaxPly:
		return score - ply
	}
	return score
}

func fromTT(score, ply int) int {
	switch {
	case score > MateScore-MaxPly:
		return score - ply
	case score < -MateScore+MaxPly:
		return score + ply
	}
	return score
}
