package xiangqi

import "fmt"

// Camp identifies the side a piece belongs to
type Camp int8

const (
	CampNone Camp = iota
	CampRed
	CampBlack
)

// Opponent returns the other camp
func (c Camp) Opponent() Camp {
	switch c {
	case CampRed:
		return CampBlack
	case CampBlack:
		return CampRed
	}
	return CampNone
}

// Char returns the side-to-move character used in position strings
func (c Camp) Char() byte {
	switch c {
	case CampRed:
		return 'w'
	case CampBlack:
		return 'b'
	}
	return '-'
}

func (c Camp) String() string {
	switch c {
	case CampRed:
		return "red"
	case CampBlack:
		return "black"
	}
	return "none"
}

// MarshalText encodes the camp as its lowercase name
func (c Camp) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a camp name
func (c *Camp) UnmarshalText(text []byte) error {
	switch string(text) {
	case "red", "w":
		*c = CampRed
	case "black", "b":
		*c = CampBlack
	case "none", "":
		*c = CampNone
	default:
		return fmt.Errorf("unknown camp %q", text)
	}
	return nil
}

// Kind is a piece type independent of camp
type Kind int8

const (
	KindNone Kind = iota
	King
	Advisor
	Bishop
	Knight
	Rook
	Cannon
	Pawn
)

var kindNames = [...]string{"none", "king", "advisor", "bishop", "knight", "rook", "cannon", "pawn"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Piece is the wire letter of a piece: uppercase for Red, lowercase for
// Black, zero for an empty cell.
type Piece byte

// Empty marks an unoccupied cell
const Empty Piece = 0

// IsPiece reports whether b is one of the fourteen piece letters
func IsPiece(b byte) bool {
	return Piece(b).Kind() != KindNone
}

// Kind returns the piece type
func (p Piece) Kind() Kind {
	switch p {
	case 'K', 'k':
		return King
	case 'A', 'a':
		return Advisor
	case 'B', 'b':
		return Bishop
	case 'N', 'n':
		return Knight
	case 'R', 'r':
		return Rook
	case 'C', 'c':
		return Cannon
	case 'P', 'p':
		return Pawn
	}
	return KindNone
}

// Camp returns the camp owning the piece, derived from letter case
func (p Piece) Camp() Camp {
	if p.Kind() == KindNone {
		return CampNone
	}
	if p >= 'A' && p <= 'Z' {
		return CampRed
	}
	return CampBlack
}

// Glyph returns the Chinese character for the piece
func (p Piece) Glyph() string {
	switch p {
	case 'K':
		return "帅"
	case 'k':
		return "将"
	case 'A':
		return "仕"
	case 'a':
		return "士"
	case 'B':
		return "相"
	case 'b':
		return "象"
	case 'N', 'n':
		return "马"
	case 'R', 'r':
		return "车"
	case 'C', 'c':
		return "炮"
	case 'P':
		return "兵"
	case 'p':
		return "卒"
	}
	return ""
}

func (p Piece) String() string {
	if p == Empty {
		return ""
	}
	return string(rune(p))
}

// MarshalText encodes the piece as its letter, empty for no piece
func (p Piece) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a single piece letter
func (p *Piece) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Empty
		return nil
	}
	if len(text) != 1 || !IsPiece(text[0]) {
		return fmt.Errorf("unknown piece %q", text)
	}
	*p = Piece(text[0])
	return nil
}
