// Package magic builds the magic-bitboard attack tables for rooks and
// bishops.
//
// For every square and slider kind the relevant occupancy (the rays from the
// square minus the board edges) is hashed with a multiply and a shift into a
// dense table of attack sets. The multipliers are found by sparse random
// trial, per square, across a worker pool. The finished Tables value is
// immutable and safe to share between goroutines.
package magic

import (
	"errors"
	"fmt"

	"github.com/hailam/athena/internal/board"
)

// ErrMagicGeneration reports that no collision-free table could be built.
// Move generation cannot run without correct tables, so it is fatal.
var ErrMagicGeneration = errors.New("magic table generation failed")

// Kind selects a sliding piece.
type Kind uint8

const (
	Rook Kind = iota
	Bishop
)

// Kinds lists every slider kind in build order.
var Kinds = [...]Kind{Rook, Bishop}

func (k Kind) String() string {
	switch k {
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Entry is the lookup data for one square and one slider kind.
type Entry struct {
	Mask    board.Bitboard   // relevant occupancy, edges excluded
	Magic   uint64           // multiplier
	Shift   uint8            // 64 - popcount(Mask)
	Attacks []board.Bitboard // indexed by Index
}

// Index hashes an occupancy into the entry's attack table.
func (e *Entry) Index(occupied board.Bitboard) uint64 {
	return (uint64(occupied&e.Mask) * e.Magic) >> e.Shift
}

// Lookup returns the attack set for the given board occupancy.
func (e *Entry) Lookup(occupied board.Bitboard) board.Bitboard {
	return e.Attacks[e.Index(occupied)]
}

// Tables holds a complete set of rook and bishop entries.
type Tables struct {
	entries [2][64]Entry
}

// Entry returns the entry for kind on sq.
func (t *Tables) Entry(kind Kind, sq board.Square) *Entry {
	return &t.entries[kind][sq]
}

// RookAttacks returns the squares a rook on sq attacks given occupied.
func (t *Tables) RookAttacks(sq board.Square, occupied board.Bitboard) board.Bitboard {
	e := &t.entries[Rook][sq]
	return e.Attacks[(uint64(occupied&e.Mask)*e.Magic)>>e.Shift]
}

// BishopAttacks returns the squares a bishop on sq attacks given occupied.
func (t *Tables) BishopAttacks(sq board.Square, occupied board.Bitboard) board.Bitboard {
	e := &t.entries[Bishop][sq]
	return e.Attacks[(uint64(occupied&e.Mask)*e.Magic)>>e.Shift]
}

// QueenAttacks is the union of rook and bishop attacks.
func (t *Tables) QueenAttacks(sq board.Square, occupied board.Bitboard) board.Bitboard {
	return t.RookAttacks(sq, occupied) | t.BishopAttacks(sq, occupied)
}

// Magics returns the 64 multipliers for kind, in square order.
func (t *Tables) Magics(kind Kind) [64]uint64 {
	var out [64]uint64
	for sq := range out {
		out[sq] = t.entries[kind][sq].Magic
	}
	return out
}

// Size returns the total number of attack table slots.
func (t *Tables) Size() int {
	n := 0
	for k := range t.entries {
		for sq := range t.entries[k] {
			n += len(t.entries[k][sq].Attacks)
		}
	}
	return n
}

// Verify checks every entry against ray tracing for every subset of its
// mask. Any mismatch wraps ErrMagicGeneration.
func (t *Tables) Verify() error {
	for _, kind := range Kinds {
		for sq := board.A1; sq <= board.H8; sq++ {
			e := &t.entries[kind][sq]
			if e.Mask != RelevantMask(kind, sq) {
				return fmt.Errorf("%w: %s %s: wrong mask", ErrMagicGeneration, kind, sq)
			}
			if len(e.Attacks) != 1<<(64-int(e.Shift)) {
				return fmt.Errorf("%w: %s %s: table size %d does not match shift %d",
					ErrMagicGeneration, kind, sq, len(e.Attacks), e.Shift)
			}
			for _, occ := range Subsets(e.Mask) {
				if got, want := e.Lookup(occ), SlowAttacks(kind, sq, occ); got != want {
					return fmt.Errorf("%w: %s %s: collision at occupancy %#x", ErrMagicGeneration, kind, sq, uint64(occ))
				}
			}
		}
	}
	return nil
}
