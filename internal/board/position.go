package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPosition is returned when an external position description
// cannot be turned into a consistent Position.
var ErrMalformedPosition = errors.New("malformed position")

// CastlingRights is a set of the four castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CanCastle reports whether c still holds the given castling right.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	right := WhiteKingSideCastle
	if !kingSide {
		right = WhiteQueenSideCastle
	}
	if c == Black {
		right <<= 2
	}
	return cr&right != 0
}

// Position is a complete chess position. It is a plain value: assigning it
// copies the whole state, and two positions compare equal with == exactly
// when they describe the same position.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy, kept in sync with Pieces
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // NoSquare if none
	HalfMoveClock  int
	FullMoveNumber int

	// Zobrist hash, maintained incrementally by MakeMove
	Hash uint64

	// mailbox for PieceAt
	squares [64]Piece
}

// NewPosition returns the standard starting position.
func NewPosition() Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// emptyPosition returns a board with no pieces, white to move.
func emptyPosition() Position {
	p := Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	for i := range p.squares {
		p.squares[i] = NoPiece
	}
	return p
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	return p.squares[sq]
}

// IsEmpty reports whether sq is unoccupied.
func (p *Position) IsEmpty(sq Square) bool {
	return p.squares[sq] == NoPiece
}

// KingSquare returns the square of c's king.
func (p *Position) KingSquare(c Color) Square {
	return p.Pieces[c][King].LSB()
}

// putPiece places pc on an empty square. The hash is not touched.
func (p *Position) putPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.squares[sq] = pc
}

// removePiece clears sq and returns what was there. The hash is not touched.
func (p *Position) removePiece(sq Square) Piece {
	pc := p.squares[sq]
	if pc == NoPiece {
		return NoPiece
	}
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.squares[sq] = NoPiece
	return pc
}

// movePiece moves the piece on from to the empty square to. The hash is not touched.
func (p *Position) movePiece(from, to Square) {
	pc := p.squares[from]
	c, pt := pc.Color(), pc.Type()
	moveBB := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB
	p.squares[from] = NoPiece
	p.squares[to] = pc
}

// Validate checks the invariants a position must satisfy independently of
// attack information. It does not look at checks; see movegen.Generator.Validate.
func (p *Position) Validate() error {
	for c := White; c <= Black; c++ {
		if n := p.Pieces[c][King].PopCount(); n != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrMalformedPosition, c, n)
		}
	}

	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("%w: pawn on first or last rank", ErrMalformedPosition)
	}

	var seen Bitboard
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			if seen&p.Pieces[c][pt] != 0 {
				return fmt.Errorf("%w: overlapping piece masks", ErrMalformedPosition)
			}
			seen |= p.Pieces[c][pt]
		}
	}

	type castle struct {
		right      CastlingRights
		king, rook Piece
		kSq, rSq   Square
	}
	for _, cs := range []castle{
		{WhiteKingSideCastle, WhiteKing, WhiteRook, E1, H1},
		{WhiteQueenSideCastle, WhiteKing, WhiteRook, E1, A1},
		{BlackKingSideCastle, BlackKing, BlackRook, E8, H8},
		{BlackQueenSideCastle, BlackKing, BlackRook, E8, A8},
	} {
		if p.CastlingRights&cs.right == 0 {
			continue
		}
		if p.squares[cs.kSq] != cs.king || p.squares[cs.rSq] != cs.rook {
			return fmt.Errorf("%w: castling right %s without king and rook at home", ErrMalformedPosition, cs.right)
		}
	}

	if ep := p.EnPassant; ep != NoSquare {
		wantRank, pawnSq := 5, ep-8
		pawn := BlackPawn
		if p.SideToMove == Black {
			wantRank, pawnSq, pawn = 2, ep+8, WhitePawn
		}
		if ep.Rank() != wantRank {
			return fmt.Errorf("%w: en passant square %s on wrong rank", ErrMalformedPosition, ep)
		}
		if !p.IsEmpty(ep) || p.squares[pawnSq] != pawn {
			return fmt.Errorf("%w: en passant square %s without a double-pushed pawn", ErrMalformedPosition, ep)
		}
	}

	if p.HalfMoveClock < 0 || p.FullMoveNumber < 1 {
		return fmt.Errorf("%w: bad move counters", ErrMalformedPosition)
	}

	return nil
}

// String draws the position for terminals.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			pc := p.squares[NewSquare(file, rank)]
			if pc == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(pc.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

// IsInsufficientMaterial reports positions where neither side can mate:
// bare kings, or a single minor piece against a bare king.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn]|
		p.Pieces[White][Rook]|p.Pieces[Black][Rook]|
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}
	minors := p.Pieces[White][Knight] | p.Pieces[White][Bishop] |
		p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]
	return minors.PopCount() <= 1
}
