package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hailam/athena/internal/board"
)

// ErrUnknownEvaluator is returned by NewEvaluator for an unrecognised name.
var ErrUnknownEvaluator = errors.New("unknown evaluator")

// Evaluator scores a quiet position in centipawns from the point of view of
// the side to move. Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// Piece values in centipawns, indexed by board.PieceType.
var pieceValues = [7]int{100, 320, 330, 500, 900, 0, 0}

// Material counts material only.
type Material struct{}

func (Material) Evaluate(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pieceValues[pt] * (pos.Pieces[board.White][pt].PopCount() - pos.Pieces[board.Black][pt].PopCount())
	}
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// PieceSquare adds piece-square bonuses to material and blends the king
// table between middlegame and endgame by the remaining non-pawn material.
type PieceSquare struct{}

// Tables are written from white's point of view with a8 first, so a white
// piece on sq reads entry sq^56 and a black piece reads entry sq.
var (
	pawnTable = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		50, 50, 50, 50, 50, 50, 50, 50,
		10, 10, 20, 30, 30, 20, 10, 10,
		5, 5, 10, 25, 25, 10, 5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, -5, -10, 0, 0, -10, -5, 5,
		5, 10, 10, -20, -20, 10, 10, 5,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	knightTable = [64]int{
		-50, -40, -30, -30, -30, -30, -40, -50,
		-40, -20, 0, 0, 0, 0, -20, -40,
		-30, 0, 10, 15, 15, 10, 0, -30,
		-30, 5, 15, 20, 20, 15, 5, -30,
		-30, 0, 15, 20, 20, 15, 0, -30,
		-30, 5, 10, 15, 15, 10, 5, -30,
		-40, -20, 0, 5, 5, 0, -20, -40,
		-50, -40, -30, -30, -30, -30, -40, -50,
	}
	bishopTable = [64]int{
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 10, 10, 10, 10, 10, 10, -10,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-20, -10, -10, -10, -10, -10, -10, -20,
	}
	rookTable = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, 10, 10, 10, 10, 5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		0, 0, 0, 5, 5, 0, 0, 0,
	}
	queenTable = [64]int{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-5, 0, 5, 5, 5, 5, 0, -5,
		0, 0, 5, 5, 5, 5, 0, -5,
		-10, 5, 5, 5, 5, 5, 0, -10,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	}
	kingMidgameTable = [64]int{
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		20, 20, 0, 0, 0, 0, 20, 20,
		20, 30, 10, 0, 0, 10, 30, 20,
	}
	kingEndgameTable = [64]int{
		-50, -40, -30, -20, -20, -30, -40, -50,
		-30, -20, -10, 0, 0, -10, -20, -30,
		-30, -10, 20, 30, 30, 20, -10, -30,
		-30, -10, 30, 40, 40, 30, -10, -30,
		-30, -10, 30, 40, 40, 30, -10, -30,
		-30, -10, 20, 30, 30, 20, -10, -30,
		-30, -30, 0, 0, 0, 0, -30, -30,
		-50, -30, -30, -30, -30, -30, -30, -50,
	}

	pieceTables = [5]*[64]int{&pawnTable, &knightTable, &bishopTable, &rookTable, &queenTable}
	phaseWeight = [6]int{0, 1, 1, 2, 4, 0}
)

const maxPhase = 24

func (PieceSquare) Evaluate(pos *board.Position) int {
	var score, phase int
	var king [2]int // midgame, endgame

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt < board.King; pt++ {
			pieces := pos.Pieces[c][pt]
			for pieces != 0 {
				sq := tableIndex(pieces.PopLSB(), c)
				score += sign * (pieceValues[pt] + pieceTables[pt][sq])
				phase += phaseWeight[pt]
			}
		}
		if kings := pos.Pieces[c][board.King]; kings != 0 {
			sq := tableIndex(kings.LSB(), c)
			king[0] += sign * kingMidgameTable[sq]
			king[1] += sign * kingEndgameTable[sq]
		}
	}

	if phase > maxPhase {
		phase = maxPhase
	}
	score += (king[0]*phase + king[1]*(maxPhase-phase)) / maxPhase

	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

func tableIndex(sq board.Square, c board.Color) board.Square {
	if c == board.White {
		return sq.Mirror()
	}
	return sq
}

// NewEvaluator returns the evaluator registered under name: "material" or
// "pst".
func NewEvaluator(name string) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "material":
		return Material{}, nil
	case "pst", "":
		return PieceSquare{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvaluator, name)
}
