package movegen

import "github.com/hailam/athena/internal/board"

// PseudoLegal appends every pseudo-legal move for the side to move. Castling
// is only emitted when fully legal, since its conditions are about attacked
// squares rather than the final king square alone.
func (g *Generator) PseudoLegal(pos *board.Position, ml *board.MoveList) {
	us := pos.SideToMove
	occupied := pos.AllOccupied
	targets := ^pos.Occupied[us]
	enemies := pos.Occupied[us.Other()]

	g.pawnMoves(pos, ml, us, enemies, occupied)

	for pt := board.Knight; pt <= board.King; pt++ {
		pieces := pos.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := g.Attacks(pt, from, occupied) & targets
			for attacks != 0 {
				to := attacks.PopLSB()
				var flags board.MoveFlag
				if enemies.Has(to) {
					flags = board.FlagCapture
				}
				ml.Add(board.NewMove(from, to, flags))
			}
		}
	}

	g.castlingMoves(pos, ml, us)
}

func (g *Generator) pawnMoves(pos *board.Position, ml *board.MoveList, us board.Color, enemies, occupied board.Bitboard) {
	pawns := pos.Pieces[us][board.Pawn]
	empty := ^occupied

	var push1, push2, attackW, attackE, promoRank board.Bitboard
	var dir int
	if us == board.White {
		push1 = pawns.North() & empty
		push2 = (push1 & board.Rank3).North() & empty
		attackW = pawns.NorthWest() & enemies
		attackE = pawns.NorthEast() & enemies
		promoRank = board.Rank8
		dir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & board.Rank6).South() & empty
		attackW = pawns.SouthWest() & enemies
		attackE = pawns.SouthEast() & enemies
		promoRank = board.Rank1
		dir = -8
	}

	emit := func(targets board.Bitboard, delta int, flags board.MoveFlag) {
		for targets != 0 {
			to := targets.PopLSB()
			from := board.Square(int(to) - delta)
			if promoRank.Has(to) {
				for _, promo := range [...]board.PieceType{board.Queen, board.Rook, board.Bishop, board.Knight} {
					ml.Add(board.NewPromotion(from, to, promo, flags))
				}
				continue
			}
			ml.Add(board.NewMove(from, to, flags))
		}
	}

	emit(push1, dir, 0)
	emit(push2, 2*dir, board.FlagDoublePush)
	emit(attackW, dir-1, board.FlagCapture)
	emit(attackE, dir+1, board.FlagCapture)

	if ep := pos.EnPassant; ep != board.NoSquare {
		// Our pawns that attack ep are the squares an enemy pawn on ep would attack.
		attackers := pawnAttacks[us.Other()][ep] & pawns
		for attackers != 0 {
			ml.Add(board.NewMove(attackers.PopLSB(), ep, board.FlagEnPassant))
		}
	}
}

type castleRule struct {
	right   board.CastlingRights
	king    board.Square
	to      board.Square
	empty   board.Bitboard // between king and rook
	safe    [3]board.Square
	flag    board.MoveFlag
	rookSq  board.Square
	forSide board.Color
}

var castleRules = [...]castleRule{
	{board.WhiteKingSideCastle, board.E1, board.G1, bbOf(board.F1, board.G1), [3]board.Square{board.E1, board.F1, board.G1}, board.FlagCastleKing, board.H1, board.White},
	{board.WhiteQueenSideCastle, board.E1, board.C1, bbOf(board.B1, board.C1, board.D1), [3]board.Square{board.E1, board.D1, board.C1}, board.FlagCastleQueen, board.A1, board.White},
	{board.BlackKingSideCastle, board.E8, board.G8, bbOf(board.F8, board.G8), [3]board.Square{board.E8, board.F8, board.G8}, board.FlagCastleKing, board.H8, board.Black},
	{board.BlackQueenSideCastle, board.E8, board.C8, bbOf(board.B8, board.C8, board.D8), [3]board.Square{board.E8, board.D8, board.C8}, board.FlagCastleQueen, board.A8, board.Black},
}

func bbOf(squares ...board.Square) board.Bitboard {
	var bb board.Bitboard
	for _, sq := range squares {
		bb |= board.SquareBB(sq)
	}
	return bb
}

func (g *Generator) castlingMoves(pos *board.Position, ml *board.MoveList, us board.Color) {
	them := us.Other()
	for i := range castleRules {
		r := &castleRules[i]
		if r.forSide != us || pos.CastlingRights&r.right == 0 {
			continue
		}
		if pos.PieceAt(r.king) != board.NewPiece(board.King, us) ||
			pos.PieceAt(r.rookSq) != board.NewPiece(board.Rook, us) {
			continue
		}
		if pos.AllOccupied&r.empty != 0 {
			continue
		}
		// The king may not start in, pass through or land on an attacked square.
		if g.IsSquareAttacked(pos, r.safe[0], them) ||
			g.IsSquareAttacked(pos, r.safe[1], them) ||
			g.IsSquareAttacked(pos, r.safe[2], them) {
			continue
		}
		ml.Add(board.NewMove(r.king, r.to, r.flag))
	}
}

// Legal fills ml with the legal moves of pos. Each pseudo-legal move is
// played and kept only if the mover's king is not attacked afterwards, which
// also settles en passant captures that expose the king along the rank.
// pos is mutated during the call and restored before it returns.
func (g *Generator) Legal(pos *board.Position, ml *board.MoveList) {
	ml.Clear()
	g.PseudoLegal(pos, ml)

	us := pos.SideToMove
	n := 0
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if g.leavesKingSafe(pos, m, us) {
			ml.Set(n, m)
			n++
		}
	}
	ml.Truncate(n)
}

func (g *Generator) leavesKingSafe(pos *board.Position, m board.Move, us board.Color) bool {
	undo := pos.MakeMove(m)
	safe := !g.IsSquareAttacked(pos, pos.KingSquare(us), us.Other())
	pos.UnmakeMove(undo)
	return safe
}

// LegalMoves returns the legal moves of pos as a fresh slice.
func (g *Generator) LegalMoves(pos board.Position) []board.Move {
	var ml board.MoveList
	g.Legal(&pos, &ml)
	out := make([]board.Move, ml.Len())
	copy(out, ml.Slice())
	return out
}

// HasLegalMoves reports whether the side to move has any legal move.
func (g *Generator) HasLegalMoves(pos *board.Position) bool {
	var ml board.MoveList
	g.PseudoLegal(pos, &ml)
	us := pos.SideToMove
	for i := 0; i < ml.Len(); i++ {
		if g.leavesKingSafe(pos, ml.Get(i), us) {
			return true
		}
	}
	return false
}

// IsLegal reports whether m is one of the legal moves of pos.
func (g *Generator) IsLegal(pos *board.Position, m board.Move) bool {
	var ml board.MoveList
	g.Legal(pos, &ml)
	return ml.Contains(m)
}
