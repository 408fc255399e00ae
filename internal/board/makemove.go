package board

// UndoInfo is the diff a move leaves behind: everything MakeMove overwrites
// that cannot be recomputed from the move itself.
type UndoInfo struct {
	Move           Move
	Captured       Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
}

// castleMask[sq] is ANDed into the castling rights whenever a move touches sq.
var castleMask [64]CastlingRights

func init() {
	for i := range castleMask {
		castleMask[i] = AllCastling
	}
	castleMask[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	castleMask[H1] &^= WhiteKingSideCastle
	castleMask[A1] &^= WhiteQueenSideCastle
	castleMask[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	castleMask[H8] &^= BlackKingSideCastle
	castleMask[A8] &^= BlackQueenSideCastle
}

// castleRookSquares returns the rook's from and to squares for a castling
// move landing the king on kingTo.
func castleRookSquares(kingTo Square) (Square, Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	default: // C8
		return A8, D8
	}
}

// MakeMove plays m in place and returns the record UnmakeMove needs. The move
// must be pseudo-legal for this position; legality with respect to the own
// king is the caller's concern.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		Move:           m,
		Captured:       NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
	}

	us := p.SideToMove
	from, to := m.From(), m.To()
	piece := p.squares[from]
	pt := piece.Type()

	h := p.Hash ^ zobristSideToMove ^ zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	switch {
	case m.IsEnPassant():
		capSq := to - 8
		if us == Black {
			capSq = to + 8
		}
		undo.Captured = p.removePiece(capSq)
		h ^= zobristPiece[undo.Captured][capSq]
	case p.squares[to] != NoPiece:
		undo.Captured = p.removePiece(to)
		h ^= zobristPiece[undo.Captured][to]
	}

	p.movePiece(from, to)
	h ^= zobristPiece[piece][from] ^ zobristPiece[piece][to]

	if m.IsPromotion() {
		promo := NewPiece(m.Promotion(), us)
		p.removePiece(to)
		p.putPiece(promo, to)
		h ^= zobristPiece[piece][to] ^ zobristPiece[promo][to]
	}

	if m.IsCastling() {
		rookFrom, rookTo := castleRookSquares(to)
		rook := p.squares[rookFrom]
		p.movePiece(rookFrom, rookTo)
		h ^= zobristPiece[rook][rookFrom] ^ zobristPiece[rook][rookTo]
	}

	p.CastlingRights &= castleMask[from] & castleMask[to]
	h ^= zobristCastling[p.CastlingRights]

	if m.IsDoublePush() {
		ep := Square((int(from) + int(to)) / 2)
		p.EnPassant = ep
		h ^= zobristEnPassant[ep.File()]
	}

	if pt == Pawn || undo.Captured != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = us.Other()
	p.Hash = h
	return undo
}

// UnmakeMove reverts the move recorded in undo. Calls must be made in exact
// reverse order of MakeMove.
func (p *Position) UnmakeMove(undo UndoInfo) {
	m := undo.Move
	us := p.SideToMove.Other()
	from, to := m.From(), m.To()

	if m.IsCastling() {
		rookFrom, rookTo := castleRookSquares(to)
		p.movePiece(rookTo, rookFrom)
	}

	if m.IsPromotion() {
		p.removePiece(to)
		p.putPiece(NewPiece(Pawn, us), to)
	}

	p.movePiece(to, from)

	if undo.Captured != NoPiece {
		capSq := to
		if m.IsEnPassant() {
			capSq = to - 8
			if us == Black {
				capSq = to + 8
			}
		}
		p.putPiece(undo.Captured, capSq)
	}

	if us == Black {
		p.FullMoveNumber--
	}
	p.SideToMove = us
	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
}

// Apply returns the position after m, leaving p untouched.
func (p Position) Apply(m Move) Position {
	p.MakeMove(m)
	return p
}
