// Package game wraps a position in a playable session: move parsing with
// detailed rejection reasons, takeback, game status and access to the
// search engine.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/movegen"
)

// ErrIllegalMove matches every *IllegalMoveError.
var ErrIllegalMove = errors.New("illegal move")

// Reasons carried by IllegalMoveError.
var (
	ErrBadNotation       = errors.New("unreadable move notation")
	ErrEmptySquare       = errors.New("no piece on the origin square")
	ErrNotYourPiece      = errors.New("piece belongs to the opponent")
	ErrTakesOwnPiece     = errors.New("destination holds one of your own pieces")
	ErrInvalidForPiece   = errors.New("the piece cannot move that way")
	ErrLeavesKingInCheck = errors.New("move leaves the king in check")
)

// ErrNothingToUndo is returned by Undo at the start of a game.
var ErrNothingToUndo = errors.New("no move to undo")

// IllegalMoveError reports a rejected move. errors.Is matches both
// ErrIllegalMove and the Reason.
type IllegalMoveError struct {
	Move   string
	Reason error
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q: %v", e.Move, e.Reason)
}

func (e *IllegalMoveError) Unwrap() error {
	return e.Reason
}

func (e *IllegalMoveError) Is(target error) bool {
	return target == ErrIllegalMove
}

func illegal(text string, reason error) error {
	return &IllegalMoveError{Move: text, Reason: reason}
}

// Status is the state of play in the current position.
type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	DrawFiftyMoves
	DrawRepetition
	DrawInsufficientMaterial
)

func (s Status) String() string {
	switch s {
	case Ongoing:
		return "ongoing"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case DrawFiftyMoves:
		return "draw by fifty-move rule"
	case DrawRepetition:
		return "draw by threefold repetition"
	case DrawInsufficientMaterial:
		return "draw by insufficient material"
	}
	return "unknown"
}

// Over reports whether the game has ended.
func (s Status) Over() bool {
	return s != Ongoing
}

// Game is a sequence of moves from a starting position. It is not safe for
// concurrent use.
type Game struct {
	gen   *movegen.Generator
	start board.Position
	pos   board.Position
	moves []board.Move
	undo  []board.UndoInfo
	keys  []uint64 // hashes of every position before the current one
}

// New starts a game from the standard position.
func New(gen *movegen.Generator) *Game {
	return &Game{gen: gen, start: board.NewPosition(), pos: board.NewPosition()}
}

// NewFromFEN starts a game from fen. The position must be legal: in addition
// to ParseFEN's checks the side not to move may not be in check.
func NewFromFEN(gen *movegen.Generator, fen string) (*Game, error) {
	pos, err := gen.ParsePosition(fen)
	if err != nil {
		return nil, err
	}
	return &Game{gen: gen, start: pos, pos: pos}, nil
}

// Position returns a copy of the current position.
func (g *Game) Position() board.Position {
	return g.pos
}

// StartFEN returns the FEN the game started from.
func (g *Game) StartFEN() string {
	return g.start.ToFEN()
}

// FEN returns the current position as FEN.
func (g *Game) FEN() string {
	return g.pos.ToFEN()
}

// Moves returns the moves played so far.
func (g *Game) Moves() []board.Move {
	return append([]board.Move(nil), g.moves...)
}

// History returns the hashes of the positions before the current one, oldest
// first.
func (g *Game) History() []uint64 {
	return append([]uint64(nil), g.keys...)
}

// LegalMoves lists the legal moves in the current position.
func (g *Game) LegalMoves() []board.Move {
	return g.gen.LegalMoves(g.pos)
}

// ParseMove resolves coordinate notation ("e2e4", "e7e8q") or SAN ("Nf3",
// "exd5", "O-O") against the current position. A rejected move is reported
// as an *IllegalMoveError.
func (g *Game) ParseMove(text string) (board.Move, error) {
	text = strings.TrimSpace(text)
	if from, to, promo, ok := parseCoordinate(text); ok {
		return g.resolveCoordinate(text, from, to, promo)
	}
	if p, ok := parseSAN(text); ok {
		return g.resolveSAN(text, p)
	}
	return board.NoMove, illegal(text, ErrBadNotation)
}

func parseCoordinate(s string) (from, to board.Square, promo board.PieceType, ok bool) {
	if len(s) != 4 && len(s) != 5 {
		return
	}
	var err error
	if from, err = board.ParseSquare(s[0:2]); err != nil {
		return
	}
	if to, err = board.ParseSquare(s[2:4]); err != nil {
		return
	}
	promo = board.NoPieceType
	if len(s) == 5 {
		i := strings.IndexByte("nbrq", s[4]|0x20)
		if i < 0 {
			return
		}
		promo = board.PieceType(i + 1)
	}
	return from, to, promo, true
}

func (g *Game) resolveCoordinate(text string, from, to board.Square, promo board.PieceType) (board.Move, error) {
	pos := &g.pos
	us := pos.SideToMove

	piece := pos.PieceAt(from)
	switch {
	case piece == board.NoPiece:
		return board.NoMove, illegal(text, ErrEmptySquare)
	case piece.Color() != us:
		return board.NoMove, illegal(text, ErrNotYourPiece)
	}
	if target := pos.PieceAt(to); target != board.NoPiece && target.Color() == us {
		return board.NoMove, illegal(text, ErrTakesOwnPiece)
	}

	var pseudo board.MoveList
	g.gen.PseudoLegal(pos, &pseudo)
	for _, m := range pseudo.Slice() {
		if m.From() == from && m.To() == to && m.Promotion() == promo {
			if !g.gen.IsLegal(pos, m) {
				return board.NoMove, illegal(text, ErrLeavesKingInCheck)
			}
			return m, nil
		}
	}
	return board.NoMove, illegal(text, ErrInvalidForPiece)
}

func (g *Game) resolveSAN(text string, p sanPattern) (board.Move, error) {
	pos := &g.pos
	var legal, pseudo board.MoveList
	g.gen.Legal(pos, &legal)

	found := board.NoMove
	for _, m := range legal.Slice() {
		if p.matches(pos, m) {
			if found != board.NoMove {
				return board.NoMove, illegal(text, ErrBadNotation) // ambiguous
			}
			found = m
		}
	}
	if found != board.NoMove {
		return found, nil
	}

	g.gen.PseudoLegal(pos, &pseudo)
	for _, m := range pseudo.Slice() {
		if p.matches(pos, m) {
			return board.NoMove, illegal(text, ErrLeavesKingInCheck)
		}
	}
	return board.NoMove, illegal(text, ErrInvalidForPiece)
}

// Play parses and plays a move. On error the game is unchanged.
func (g *Game) Play(text string) (board.Move, error) {
	m, err := g.ParseMove(text)
	if err != nil {
		return board.NoMove, err
	}
	g.push(m)
	return m, nil
}

// PlayMove plays m if it is legal, matching it by origin, target and
// promotion. Rejections carry the same reasons as Play.
func (g *Game) PlayMove(m board.Move) error {
	if m == board.NoMove {
		return illegal(m.String(), ErrBadNotation)
	}
	resolved, err := g.resolveCoordinate(m.String(), m.From(), m.To(), m.Promotion())
	if err != nil {
		return err
	}
	g.push(resolved)
	return nil
}

func (g *Game) push(m board.Move) {
	g.keys = append(g.keys, g.pos.Hash)
	g.undo = append(g.undo, g.pos.MakeMove(m))
	g.moves = append(g.moves, m)
}

// Undo takes back the last move and returns it.
func (g *Game) Undo() (board.Move, error) {
	n := len(g.moves)
	if n == 0 {
		return board.NoMove, ErrNothingToUndo
	}
	g.pos.UnmakeMove(g.undo[n-1])
	m := g.moves[n-1]
	g.undo = g.undo[:n-1]
	g.moves = g.moves[:n-1]
	g.keys = g.keys[:n-1]
	return m, nil
}

// Status classifies the current position. Checkmate and stalemate take
// precedence over the draw rules.
func (g *Game) Status() Status {
	pos := &g.pos
	if !g.gen.HasLegalMoves(pos) {
		if g.gen.InCheck(pos) {
			return Checkmate
		}
		return Stalemate
	}
	switch {
	case pos.IsInsufficientMaterial():
		return DrawInsufficientMaterial
	case pos.HalfMoveClock >= 100:
		return DrawFiftyMoves
	case g.repetitions() >= 3:
		return DrawRepetition
	}
	return Ongoing
}

// repetitions counts occurrences of the current position, itself included,
// within the reversible part of the game.
func (g *Game) repetitions() int {
	count := 1
	n := len(g.keys)
	oldest := max(0, n-g.pos.HalfMoveClock)
	for i := n - 2; i >= oldest; i -= 2 {
		if g.keys[i] == g.pos.Hash {
			count++
		}
	}
	return count
}

// Winner returns the side that delivered mate, or board.NoColor.
func (g *Game) Winner() board.Color {
	if g.Status() == Checkmate {
		return g.pos.SideToMove.Other()
	}
	return board.NoColor
}

// Result returns the PGN result token.
func (g *Game) Result() string {
	switch st := g.Status(); {
	case st == Checkmate && g.pos.SideToMove == board.Black:
		return "1-0"
	case st == Checkmate:
		return "0-1"
	case st.Over():
		return "1/2-1/2"
	}
	return "*"
}

// SAN renders m in the current position.
func (g *Game) SAN(m board.Move) string {
	return SAN(g.gen, g.pos, m)
}

// MovesSAN renders the moves played so far.
func (g *Game) MovesSAN() []string {
	out := make([]string, len(g.moves))
	pos := g.start
	for i, m := range g.moves {
		out[i] = SAN(g.gen, pos, m)
		pos = pos.Apply(m)
	}
	return out
}

// BestMove searches the current position with the game's history.
func (g *Game) BestMove(e *engine.Engine, budget engine.Budget) engine.Result {
	return e.SearchFrom(g.pos, g.keys, budget)
}
