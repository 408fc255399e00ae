package movegen

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"

	"github.com/notnil/chess"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/magic"
)

var gen *Generator

func TestMain(m *testing.M) {
	tables, err := magic.Initialize(magic.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	gen = New(tables)
	os.Exit(m.Run())
}

const (
	kiwipete  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	position3 = "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"
	position4 = "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"
	position5 = "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8"
)

func TestPerft(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		depth int
		nodes uint64
	}{
		{"start", board.StartFEN, 1, 20},
		{"start", board.StartFEN, 2, 400},
		{"start", board.StartFEN, 3, 8902},
		{"start", board.StartFEN, 4, 197281},
		{"kiwipete", kiwipete, 1, 48},
		{"kiwipete", kiwipete, 2, 2039},
		{"kiwipete", kiwipete, 3, 97862},
		{"position3", position3, 1, 14},
		{"position3", position3, 2, 191},
		{"position3", position3, 3, 2812},
		{"position3", position3, 4, 43238},
		{"position4", position4, 1, 6},
		{"position4", position4, 2, 264},
		{"position4", position4, 3, 9467},
		{"position5", position5, 1, 44},
		{"position5", position5, 2, 1486},
		{"position5", position5, 3, 62379},
		{"ep discovered check", "8/8/8/KPp4r/8/8/8/7k w - c6 0 2", 1, 4},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%d", tc.name, tc.depth), func(t *testing.T) {
			if testing.Short() && tc.nodes > 10000 {
				t.Skip("short mode")
			}
			pos := board.MustParseFEN(tc.fen)
			before := pos
			if got := gen.Perft(&pos, tc.depth); got != tc.nodes {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.nodes)
			}
			if pos != before {
				t.Errorf("perft left the position modified")
			}
		})
	}
}

func TestDivideSumsToPerft(t *testing.T) {
	pos := board.MustParseFEN(kiwipete)
	var sum uint64
	entries := gen.Divide(&pos, 2)
	for _, e := range entries {
		sum += e.Nodes
	}
	if len(entries) != 48 || sum != 2039 {
		t.Errorf("divide: %d moves, %d nodes; want 48, 2039", len(entries), sum)
	}
}

// walk visits every position up to depth plies from pos.
func walk(pos *board.Position, depth int, visit func(*board.Position)) {
	visit(pos)
	if depth == 0 {
		return
	}
	var ml board.MoveList
	gen.Legal(pos, &ml)
	for _, m := range ml.Slice() {
		undo := pos.MakeMove(m)
		walk(pos, depth-1, visit)
		pos.UnmakeMove(undo)
	}
}

func TestLegalMovesNeverLeaveKingAttacked(t *testing.T) {
	for _, fen := range []string{board.StartFEN, kiwipete, position3, position4, position5} {
		pos := board.MustParseFEN(fen)
		walk(&pos, 2, func(p *board.Position) {
			us := p.SideToMove
			for _, m := range gen.LegalMoves(*p) {
				next := p.Apply(m)
				if gen.IsSquareAttacked(&next, next.KingSquare(us), us.Other()) {
					t.Fatalf("%s: %s leaves the king attacked", p.ToFEN(), m)
				}
			}
		})
	}
}

func TestIncrementalHashMatchesRecomputed(t *testing.T) {
	for _, fen := range []string{kiwipete, position4, position5} {
		pos := board.MustParseFEN(fen)
		walk(&pos, 3, func(p *board.Position) {
			if p.Hash != p.ComputeHash() {
				t.Fatalf("%s: incremental %016x, recomputed %016x", p.ToFEN(), p.Hash, p.ComputeHash())
			}
		})
	}
}

func TestReachablePositionsRoundTrip(t *testing.T) {
	pos := board.MustParseFEN(kiwipete)
	walk(&pos, 2, func(p *board.Position) {
		again, err := board.ParseFEN(p.ToFEN())
		if err != nil {
			t.Fatalf("%s: %v", p.ToFEN(), err)
		}
		if again != *p {
			t.Fatalf("%s: round trip differs", p.ToFEN())
		}
	})
}

func TestMateAndStalemateHaveNoMoves(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		inCheck bool
	}{
		{"back rank mate", "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", true},
		{"scholar's mate", "r1bqkb1r/pppp1Qpp/2n2n2/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 4", true},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false},
		{"pawn stalemate", "8/8/8/8/8/5k2/5p2/5K2 w - - 0 1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := board.MustParseFEN(tc.fen)
			if moves := gen.LegalMoves(pos); len(moves) != 0 {
				t.Errorf("got %d legal moves: %v", len(moves), moves)
			}
			if gen.HasLegalMoves(&pos) {
				t.Errorf("HasLegalMoves = true")
			}
			if got := gen.InCheck(&pos); got != tc.inCheck {
				t.Errorf("InCheck = %v, want %v", got, tc.inCheck)
			}
		})
	}
}

func TestCastlingRules(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move board.Move
		want bool
	}{
		{"both sides free", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", board.NewMove(board.E1, board.G1, board.FlagCastleKing), true},
		{"queen side free", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", board.NewMove(board.E1, board.C1, board.FlagCastleQueen), true},
		{"in check", "r3k2r/8/8/8/4r3/8/8/R3K2R w KQkq - 0 1", board.NewMove(board.E1, board.G1, board.FlagCastleKing), false},
		{"through check", "r3k2r/8/8/8/5r2/8/8/R3K2R w KQkq - 0 1", board.NewMove(board.E1, board.G1, board.FlagCastleKing), false},
		{"into check", "r3k2r/8/8/8/6r1/8/8/R3K2R w KQkq - 0 1", board.NewMove(board.E1, board.G1, board.FlagCastleKing), false},
		{"b-file attacked is fine", "r3k2r/8/8/8/1r6/8/8/R3K2R w KQkq - 0 1", board.NewMove(board.E1, board.C1, board.FlagCastleQueen), true},
		{"blocked", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", board.NewMove(board.E1, board.C1, board.FlagCastleQueen), false},
		{"no right", "r3k2r/8/8/8/8/8/8/R3K2R w Qkq - 0 1", board.NewMove(board.E1, board.G1, board.FlagCastleKing), false},
		{"black king side", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", board.NewMove(board.E8, board.G8, board.FlagCastleKing), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := board.MustParseFEN(tc.fen)
			if got := gen.IsLegal(&pos, tc.move); got != tc.want {
				t.Errorf("IsLegal(%s) = %v, want %v", tc.move, got, tc.want)
			}
		})
	}
}

func TestEnPassantDiscoveredCheckRejected(t *testing.T) {
	pos := board.MustParseFEN("8/8/8/KPp4r/8/8/8/7k w - c6 0 2")
	ep := board.NewMove(board.B5, board.C6, board.FlagEnPassant)

	var pseudo board.MoveList
	gen.PseudoLegal(&pos, &pseudo)
	if !pseudo.Contains(ep) {
		t.Fatalf("en passant not generated as pseudo-legal")
	}
	if gen.IsLegal(&pos, ep) {
		t.Errorf("en passant exposing the king on the rank is legal")
	}
}

func TestPromotionsEmitEveryPiece(t *testing.T) {
	pos := board.MustParseFEN("1n2k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	var promos []string
	for _, m := range gen.LegalMoves(pos) {
		if m.IsPromotion() {
			promos = append(promos, m.String())
		}
	}
	sort.Strings(promos)
	want := []string{"a7a8b", "a7a8n", "a7a8q", "a7a8r", "a7b8b", "a7b8n", "a7b8q", "a7b8r"}
	if fmt.Sprint(promos) != fmt.Sprint(want) {
		t.Errorf("promotions = %v, want %v", promos, want)
	}
}

func TestValidateRejectsKingCapturable(t *testing.T) {
	const capturable = "4k3/8/8/8/8/8/4R3/4K3 w - - 0 1"
	if _, err := board.ParseFEN(capturable); err != nil {
		t.Fatalf("ParseFEN checks layout only, got %v", err)
	}
	_, err := gen.ParsePosition(capturable)
	if !errors.Is(err, board.ErrMalformedPosition) {
		t.Fatalf("err = %v, want ErrMalformedPosition", err)
	}
	if _, err := gen.ParsePosition("4k3/8/8/8/8/8/4R3/4K3 b - - 0 1"); err != nil {
		t.Errorf("legal check position rejected: %v", err)
	}
}

func TestAttackersTo(t *testing.T) {
	pos := board.MustParseFEN("4k3/8/8/3p4/4R3/2N5/B7/4K3 w - - 0 1")
	got := gen.AttackersTo(&pos, board.D5, board.White, pos.AllOccupied)
	want := board.SquareBB(board.C3) | board.SquareBB(board.A2)
	if got != want {
		t.Errorf("attackers of d5:\n%s\nwant:\n%s", got, want)
	}
}

// Cross-check against an independent move generator.
func TestAgainstReferenceGenerator(t *testing.T) {
	for _, fen := range []string{board.StartFEN, kiwipete, position3, position4, position5} {
		pos := board.MustParseFEN(fen)
		walk(&pos, 1, func(p *board.Position) {
			fenStr := p.ToFEN()
			opt, err := chess.FEN(fenStr)
			if err != nil {
				t.Fatalf("reference rejects %s: %v", fenStr, err)
			}
			ref := chess.NewGame(opt)

			var want []string
			for _, m := range ref.ValidMoves() {
				want = append(want, m.String())
			}
			var got []string
			for _, m := range gen.LegalMoves(*p) {
				got = append(got, m.String())
			}
			sort.Strings(want)
			sort.Strings(got)
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Errorf("%s:\n got %v\nwant %v", fenStr, got, want)
			}
		})
	}
}
