package magic

import (
	"fmt"
	"math/bits"

	"github.com/hailam/athena/internal/board"
)

// finder holds the per-square scratch state for testing candidates.
type finder struct {
	kind  Kind
	sq    board.Square
	mask  board.Bitboard
	shift uint8
	occ   []board.Bitboard // every subset of mask
	ref   []board.Bitboard // ray-traced attacks, parallel to occ

	table []board.Bitboard
	stamp []uint32 // table[i] is live for the current candidate iff stamp[i] == epoch
	epoch uint32
}

func newFinder(kind Kind, sq board.Square) *finder {
	mask := RelevantMask(kind, sq)
	occ := Subsets(mask)
	ref := make([]board.Bitboard, len(occ))
	for i, o := range occ {
		ref[i] = SlowAttacks(kind, sq, o)
	}
	size := 1 << mask.PopCount()
	return &finder{
		kind:  kind,
		sq:    sq,
		mask:  mask,
		shift: uint8(64 - mask.PopCount()),
		occ:   occ,
		ref:   ref,
		table: make([]board.Bitboard, size),
		stamp: make([]uint32, size),
	}
}

// try reports whether magic hashes every subset without a destructive
// collision. Two subsets may share a slot when their attack sets agree.
func (f *finder) try(magic uint64) bool {
	f.epoch++
	for i, o := range f.occ {
		idx := (uint64(o) * magic) >> f.shift
		if f.stamp[idx] != f.epoch {
			f.stamp[idx] = f.epoch
			f.table[idx] = f.ref[i]
			continue
		}
		if f.table[idx] != f.ref[i] {
			return false
		}
	}
	return true
}

// entry materializes the lookup table for a magic that passed try.
func (f *finder) entry(magic uint64) Entry {
	attacks := make([]board.Bitboard, len(f.table))
	for i, o := range f.occ {
		attacks[(uint64(o)*magic)>>f.shift] = f.ref[i]
	}
	return Entry{Mask: f.mask, Magic: magic, Shift: f.shift, Attacks: attacks}
}

// squareSeed derives an independent, reproducible seed for one job so the
// result does not depend on which worker runs it.
func squareSeed(seed uint64, kind Kind, sq board.Square) uint64 {
	z := seed + (uint64(kind)<<6|uint64(sq)+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// FindMagic searches for a collision-free multiplier for kind on sq, trying
// at most budget candidates. It returns the entry and the number of
// candidates drawn; running out of budget wraps ErrMagicGeneration.
func FindMagic(kind Kind, sq board.Square, seed uint64, budget int) (Entry, int, error) {
	return newFinder(kind, sq).search(seed, budget)
}

func (f *finder) search(seed uint64, budget int) (Entry, int, error) {
	rng := board.NewPRNG(squareSeed(seed, f.kind, f.sq))
	for tries := 1; tries <= budget; tries++ {
		magic := rng.Sparse()
		// Cheap rejection: a usable magic spreads the mask into the high bits.
		if bits.OnesCount64((uint64(f.mask)*magic)&0xFF00000000000000) < 6 {
			continue
		}
		if f.try(magic) {
			return f.entry(magic), tries, nil
		}
	}
	return Entry{}, budget, fmt.Errorf("%w: %s %s: no magic within %d candidates", ErrMagicGeneration, f.kind, f.sq, budget)
}
