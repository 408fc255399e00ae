package board

import "testing"

func TestMakeUnmakeRestoresPosition(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move Move
	}{
		{"quiet", StartFEN, NewMove(G1, F3, 0)},
		{"double push", StartFEN, NewMove(E2, E4, FlagDoublePush)},
		{"capture", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", NewMove(E5, F7, FlagCapture)},
		{"castle king side", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", NewMove(E1, G1, FlagCastleKing)},
		{"castle queen side", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R b KQkq - 0 1", NewMove(E8, C8, FlagCastleQueen)},
		{"en passant", "rnbqkbnr/pp1ppppp/8/2pP4/8/8/PPP1PPPP/RNBQKBNR w KQkq c6 0 2", NewMove(D5, C6, FlagEnPassant)},
		{"promotion", "4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", NewPromotion(B7, B8, Queen, 0)},
		{"capture promotion", "r3k3/1P6/8/8/8/8/8/4K3 w q - 0 1", NewPromotion(B7, A8, Knight, FlagCapture)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := MustParseFEN(tc.fen)
			before := pos

			undo := pos.MakeMove(tc.move)
			if pos.Hash != pos.ComputeHash() {
				t.Errorf("incremental hash %016x, recomputed %016x", pos.Hash, pos.ComputeHash())
			}
			if pos.SideToMove == before.SideToMove {
				t.Errorf("side to move not switched")
			}

			pos.UnmakeMove(undo)
			if pos != before {
				t.Errorf("unmake did not restore:\n got %s\nwant %s", pos.ToFEN(), before.ToFEN())
			}
		})
	}
}

func TestMakeMoveStateUpdates(t *testing.T) {
	const kiwi = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 3 1"

	tests := []struct {
		name     string
		fen      string
		move     Move
		castling CastlingRights
		ep       Square
		halfmove int
		fen2     string
	}{
		{
			name:     "king move drops both rights",
			fen:      kiwi,
			move:     NewMove(E1, F1, 0),
			castling: BlackKingSideCastle | BlackQueenSideCastle,
			ep:       NoSquare,
			halfmove: 4,
		},
		{
			name:     "rook move drops one right",
			fen:      kiwi,
			move:     NewMove(H1, G1, 0),
			castling: WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle,
			ep:       NoSquare,
			halfmove: 4,
		},
		{
			name:     "rook captured on home square",
			fen:      "r3k2r/8/8/8/8/8/6B1/R3K2R w KQkq - 0 1",
			move:     NewMove(G2, A8, FlagCapture),
			castling: WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle,
			ep:       NoSquare,
			halfmove: 0,
		},
		{
			name:     "double push sets en passant",
			fen:      kiwi,
			move:     NewMove(A2, A4, FlagDoublePush),
			castling: AllCastling,
			ep:       A3,
			halfmove: 0,
		},
		{
			name:     "en passant cleared by next move",
			fen:      "rnbqkbnr/pp1ppppp/8/2pP4/8/8/PPP1PPPP/RNBQKBNR w KQkq c6 0 2",
			move:     NewMove(G1, F3, 0),
			castling: AllCastling,
			ep:       NoSquare,
			halfmove: 1,
		},
		{
			name:     "castling moves the rook",
			fen:      kiwi,
			move:     NewMove(E1, C1, FlagCastleQueen),
			castling: BlackKingSideCastle | BlackQueenSideCastle,
			ep:       NoSquare,
			halfmove: 4,
			fen2:     "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/2KR3R b kq - 4 1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := MustParseFEN(tc.fen)
			pos.MakeMove(tc.move)

			if pos.CastlingRights != tc.castling {
				t.Errorf("castling = %s, want %s", pos.CastlingRights, tc.castling)
			}
			if pos.EnPassant != tc.ep {
				t.Errorf("en passant = %s, want %s", pos.EnPassant, tc.ep)
			}
			if pos.HalfMoveClock != tc.halfmove {
				t.Errorf("halfmove = %d, want %d", pos.HalfMoveClock, tc.halfmove)
			}
			if tc.fen2 != "" && pos.ToFEN() != tc.fen2 {
				t.Errorf("fen = %q, want %q", pos.ToFEN(), tc.fen2)
			}
			if pos.Hash != pos.ComputeHash() {
				t.Errorf("incremental hash diverged")
			}
		})
	}
}

func TestApplyLeavesReceiverUntouched(t *testing.T) {
	pos := NewPosition()
	next := pos.Apply(NewMove(E2, E4, FlagDoublePush))

	if pos != NewPosition() {
		t.Errorf("Apply mutated its receiver")
	}
	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	if got := next.ToFEN(); got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
	if next.FullMoveNumber != 1 {
		t.Errorf("fullmove advanced after white's move")
	}

	after := next.Apply(NewMove(E7, E5, FlagDoublePush))
	if after.FullMoveNumber != 2 {
		t.Errorf("fullmove = %d after black's move, want 2", after.FullMoveNumber)
	}
}

func TestTranspositionsHashEqual(t *testing.T) {
	a := NewPosition()
	a = a.Apply(NewMove(G1, F3, 0))
	a = a.Apply(NewMove(G8, F6, 0))
	a = a.Apply(NewMove(B1, C3, 0))
	a = a.Apply(NewMove(B8, C6, 0))

	b := NewPosition()
	b = b.Apply(NewMove(B1, C3, 0))
	b = b.Apply(NewMove(B8, C6, 0))
	b = b.Apply(NewMove(G1, F3, 0))
	b = b.Apply(NewMove(G8, F6, 0))

	if a.Hash != b.Hash {
		t.Errorf("transposed move orders hash differently")
	}
}
