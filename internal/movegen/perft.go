package movegen

import (
	"fmt"

	"github.com/hailam/athena/internal/board"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (g *Generator) Perft(pos *board.Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml board.MoveList
	g.Legal(pos, &ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		undo := pos.MakeMove(m)
		nodes += g.Perft(pos, depth-1)
		pos.UnmakeMove(undo)
	}
	return nodes
}

// DivideEntry is the subtree size below one root move.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}

// Divide runs Perft below each root move, in generation order.
func (g *Generator) Divide(pos *board.Position, depth int) []DivideEntry {
	var ml board.MoveList
	g.Legal(pos, &ml)

	out := make([]DivideEntry, 0, ml.Len())
	for _, m := range ml.Slice() {
		undo := pos.MakeMove(m)
		out = append(out, DivideEntry{Move: m, Nodes: g.Perft(pos, depth-1)})
		pos.UnmakeMove(undo)
	}
	return out
}

// Validate checks what ParseFEN cannot: the side that just moved must not
// have left its king in check.
func (g *Generator) Validate(pos *board.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	them := pos.SideToMove.Other()
	if g.IsSquareAttacked(pos, pos.KingSquare(them), pos.SideToMove) {
		return fmt.Errorf("%w: %s to move can capture the king", board.ErrMalformedPosition, pos.SideToMove)
	}
	return nil
}

// ParsePosition parses a FEN and applies Validate.
func (g *Generator) ParsePosition(fen string) (board.Position, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return board.Position{}, err
	}
	if err := g.Validate(&pos); err != nil {
		return board.Position{}, err
	}
	return pos, nil
}
