package board

// Move encodes a chess move in 32 bits:
//
//	bits 0-5:   from square
//	bits 6-11:  to square
//	bits 12-14: promotion piece type (0 = none, otherwise Knight..Queen)
//	bits 16-21: MoveFlag
type Move uint32

// MoveFlag marks special properties of a move.
type MoveFlag uint8

const (
	FlagCapture MoveFlag = 1 << iota
	FlagEnPassant
	FlagDoublePush
	FlagCastleKing
	FlagCastleQueen
	FlagPromotion
)

// NoMove is the null move.
const NoMove Move = 0

// NewMove creates a move with the given flags.
func NewMove(from, to Square, flags MoveFlag) Move {
	return Move(from) | Move(to)<<6 | Move(flags)<<16
}

// NewPromotion creates a promotion to promo; FlagPromotion is added.
func NewPromotion(from, to Square, promo PieceType, flags MoveFlag) Move {
	return Move(from) | Move(to)<<6 | Move(promo)<<12 | Move(flags|FlagPromotion)<<16
}

func (m Move) From() Square {
	return Square(m & 0x3F)
}

func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

func (m Move) Flags() MoveFlag {
	return MoveFlag(m >> 16)
}

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return PieceType((m >> 12) & 7)
}

func (m Move) IsPromotion() bool {
	return m.Flags()&FlagPromotion != 0
}

// IsCapture includes en-passant captures.
func (m Move) IsCapture() bool {
	return m.Flags()&(FlagCapture|FlagEnPassant) != 0
}

func (m Move) IsEnPassant() bool {
	return m.Flags()&FlagEnPassant != 0
}

func (m Move) IsDoublePush() bool {
	return m.Flags()&FlagDoublePush != 0
}

func (m Move) IsCastling() bool {
	return m.Flags()&(FlagCastleKing|FlagCastleQueen) != 0
}

// IsQuiet reports a move that is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// String returns coordinate notation ("e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// MaxMoves bounds the number of moves in any legal chess position.
const MaxMoves = 256

// MoveList is a fixed-capacity move buffer that avoids allocations.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int {
	return ml.count
}

func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

func (ml *MoveList) Clear() {
	ml.count = 0
}

// Truncate drops every move from index n on.
func (ml *MoveList) Truncate(n int) {
	ml.count = n
}

func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns a view of the stored moves. It aliases the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
