package game

import (
	"strings"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/movegen"
)

const sanPieces = "PNBRQK"

// SAN renders m, which must be legal in pos, in standard algebraic notation.
func SAN(gen *movegen.Generator, pos board.Position, m board.Move) string {
	if m == board.NoMove {
		return "-"
	}
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.Flags()&board.FlagCastleKing != 0:
		sb.WriteString("O-O")
	case m.Flags()&board.FlagCastleQueen != 0:
		sb.WriteString("O-O-O")
	default:
		pt := piece.Type()
		if pt != board.Pawn {
			sb.WriteByte(sanPieces[pt])
			sb.WriteString(disambiguation(gen, pos, m, pt))
		}
		if m.IsCapture() {
			if pt == board.Pawn {
				sb.WriteByte(byte('a' + m.From().File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(m.To().String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte(sanPieces[m.Promotion()])
		}
	}

	next := pos.Apply(m)
	if gen.InCheck(&next) {
		if gen.HasLegalMoves(&next) {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other legal moves of the same piece type to the same square.
func disambiguation(gen *movegen.Generator, pos board.Position, m board.Move, pt board.PieceType) string {
	from := m.From()
	var others []board.Square
	for _, o := range gen.LegalMoves(pos) {
		if o.To() == m.To() && o.From() != from && pos.PieceAt(o.From()).Type() == pt {
			others = append(others, o.From())
		}
	}
	if len(others) == 0 {
		return ""
	}

	sameFile, sameRank := false, false
	for _, sq := range others {
		sameFile = sameFile || sq.File() == from.File()
		sameRank = sameRank || sq.Rank() == from.Rank()
	}
	switch {
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// sanPattern is what a SAN string says about a move; unset fields match
// anything.
type sanPattern struct {
	castle  board.MoveFlag
	piece   board.PieceType
	to      board.Square
	file    int
	rank    int
	promo   board.PieceType
	capture bool
}

func (p sanPattern) matches(pos *board.Position, m board.Move) bool {
	if p.castle != 0 {
		return m.Flags()&p.castle != 0
	}
	from := m.From()
	switch {
	case m.To() != p.to,
		m.IsCastling(),
		pos.PieceAt(from).Type() != p.piece,
		p.file >= 0 && from.File() != p.file,
		p.rank >= 0 && from.Rank() != p.rank,
		p.capture && !m.IsCapture(),
		p.piece == board.Pawn && !p.capture && m.IsCapture(),
		m.Promotion() != p.promo:
		return false
	}
	return true
}

// parseSAN reads the shape of a SAN move without consulting a position.
func parseSAN(s string) (sanPattern, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")
	p := sanPattern{file: -1, rank: -1, piece: board.Pawn, promo: board.NoPieceType}

	switch s {
	case "O-O", "0-0":
		p.castle = board.FlagCastleKing
		return p, true
	case "O-O-O", "0-0-0":
		p.castle = board.FlagCastleQueen
		return p, true
	}

	if i := strings.IndexByte(s, '='); i >= 0 {
		if i+2 != len(s) {
			return p, false
		}
		idx := strings.IndexByte(sanPieces[1:5], s[i+1])
		if idx < 0 {
			return p, false
		}
		p.promo = board.PieceType(idx + 1)
		s = s[:i]
	}

	if s != "" {
		if idx := strings.IndexByte(sanPieces[1:], s[0]); idx >= 0 {
			p.piece = board.PieceType(idx + 1)
			s = s[1:]
		}
	}

	p.capture = strings.Contains(s, "x")
	s = strings.Replace(s, "x", "", 1)
	if len(s) < 2 || len(s) > 4 {
		return p, false
	}
	to, err := board.ParseSquare(s[len(s)-2:])
	if err != nil {
		return p, false
	}
	p.to = to

	for _, c := range s[:len(s)-2] {
		switch {
		case c >= 'a' && c <= 'h':
			p.file = int(c - 'a')
		case c >= '1' && c <= '8':
			p.rank = int(c - '1')
		default:
			return p, false
		}
	}
	if p.promo != board.NoPieceType && p.piece != board.Pawn {
		return p, false
	}
	return p, true
}
