package board

// Zobrist keys, generated once from a fixed seed so hashes are stable
// across runs and processes.
var (
	zobristPiece      [12][64]uint64
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

func init() {
	rng := NewPRNG(0x98F107A2BEEF1234)

	for pc := WhitePawn; pc < NoPiece; pc++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[pc][sq] = rng.Next()
		}
	}
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.Next()
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.Next()
	}
	zobristSideToMove = rng.Next()
}

// PRNG is a xorshift64* generator. It is deterministic for a given seed and
// is not safe for concurrent use.
type PRNG struct {
	state uint64
}

// NewPRNG seeds a generator. A zero seed is replaced by a fixed constant
// because xorshift would otherwise stay at zero forever.
func NewPRNG(seed uint64) *PRNG {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &PRNG{state: seed}
}

// Next returns the next 64-bit value.
func (r *PRNG) Next() uint64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	return r.state * 0x2545F4914F6CDD1D
}

// Sparse returns a value with roughly 1/8 of its bits set, the usual shape
// of a good magic multiplier.
func (r *PRNG) Sparse() uint64 {
	return r.Next() & r.Next() & r.Next()
}

// ComputeHash recomputes the Zobrist hash from scratch. MakeMove keeps Hash
// up to date incrementally; this is the verification path.
func (p *Position) ComputeHash() uint64 {
	var hash uint64
	for sq := A1; sq <= H8; sq++ {
		if pc := p.squares[sq]; pc != NoPiece {
			hash ^= zobristPiece[pc][sq]
		}
	}
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	return hash
}
