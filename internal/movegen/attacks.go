// Package movegen turns a board.Position into moves. Leaper attacks come from
// small tables computed at package init; slider attacks come from the magic
// tables handed to New.
package movegen

import (
	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/magic"
)

var (
	knightAttacks [64]board.Bitboard
	kingAttacks   [64]board.Bitboard
	pawnAttacks   [2][64]board.Bitboard // [Color][Square]
)

func init() {
	for sq := board.A1; sq <= board.H8; sq++ {
		bb := board.SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&board.NotFileA | (bb<<15)&board.NotFileH |
			(bb>>17)&board.NotFileH | (bb>>15)&board.NotFileA |
			(bb<<10)&board.NotFileAB | (bb<<6)&board.NotFileGH |
			(bb>>10)&board.NotFileGH | (bb>>6)&board.NotFileAB

		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		pawnAttacks[board.White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[board.Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

// KnightAttacks returns the knight attack set from sq.
func KnightAttacks(sq board.Square) board.Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack set from sq.
func KingAttacks(sq board.Square) board.Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a c pawn on sq captures on.
func PawnAttacks(sq board.Square, c board.Color) board.Bitboard {
	return pawnAttacks[c][sq]
}

// Generator produces moves for any position. It holds only read-only tables
// and may be shared by any number of goroutines.
type Generator struct {
	tables *magic.Tables
}

// New returns a generator backed by t, which must be fully built.
func New(t *magic.Tables) *Generator {
	return &Generator{tables: t}
}

// Tables returns the slider tables the generator uses.
func (g *Generator) Tables() *magic.Tables {
	return g.tables
}

// Attacks returns the attack set of a pt on sq for the given occupancy.
// Pawns are not handled here; use PawnAttacks.
func (g *Generator) Attacks(pt board.PieceType, sq board.Square, occupied board.Bitboard) board.Bitboard {
	switch pt {
	case board.Knight:
		return knightAttacks[sq]
	case board.Bishop:
		return g.tables.BishopAttacks(sq, occupied)
	case board.Rook:
		return g.tables.RookAttacks(sq, occupied)
	case board.Queen:
		return g.tables.QueenAttacks(sq, occupied)
	case board.King:
		return kingAttacks[sq]
	}
	return board.Empty
}

// AttackersTo returns the pieces of color by that attack sq under the given
// occupancy.
func (g *Generator) AttackersTo(pos *board.Position, sq board.Square, by board.Color, occupied board.Bitboard) board.Bitboard {
	p := &pos.Pieces[by]
	diag := p[board.Bishop] | p[board.Queen]
	ortho := p[board.Rook] | p[board.Queen]
	return pawnAttacks[by.Other()][sq]&p[board.Pawn] |
		knightAttacks[sq]&p[board.Knight] |
		kingAttacks[sq]&p[board.King] |
		g.tables.BishopAttacks(sq, occupied)&diag |
		g.tables.RookAttacks(sq, occupied)&ortho
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
func (g *Generator) IsSquareAttacked(pos *board.Position, sq board.Square, by board.Color) bool {
	p := &pos.Pieces[by]
	if pawnAttacks[by.Other()][sq]&p[board.Pawn] != 0 ||
		knightAttacks[sq]&p[board.Knight] != 0 ||
		kingAttacks[sq]&p[board.King] != 0 {
		return true
	}
	occ := pos.AllOccupied
	return g.tables.BishopAttacks(sq, occ)&(p[board.Bishop]|p[board.Queen]) != 0 ||
		g.tables.RookAttacks(sq, occ)&(p[board.Rook]|p[board.Queen]) != 0
}

// InCheck reports whether the side to move is in check.
func (g *Generator) InCheck(pos *board.Position) bool {
	us := pos.SideToMove
	return g.IsSquareAttacked(pos, pos.KingSquare(us), us.Other())
}

// Checkers returns the pieces giving check to the side to move.
func (g *Generator) Checkers(pos *board.Position) board.Bitboard {
	us := pos.SideToMove
	return g.AttackersTo(pos, pos.KingSquare(us), us.Other(), pos.AllOccupied)
}
