// Package xiangqi models a Xiangqi position as seen from above and derives
// moves, legality and traditional notation from consecutive positions.
package xiangqi

import (
	"fmt"
	"strings"
)

const (
	// Rows is the number of ranks; row 0 is Black's back rank
	Rows = 10
	// Cols is the number of files
	Cols = 9
)

// StartFEN is the canonical opening placement without the side suffix
const StartFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR"

var labels [Rows][Cols]string

func init() {
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			labels[row][col] = fmt.Sprintf("%c%d", 'a'+col, 9-row)
		}
	}
}

// Label returns the coordinate label of a cell, "a9" for (0, 0) and "i0" for (9, 8)
func Label(row, col int) string {
	if !inside(row, col) {
		return ""
	}
	return labels[row][col]
}

// ParseLabel converts a coordinate label back into a cell
func ParseLabel(label string) (Square, error) {
	if len(label) != 2 {
		return Square{}, fmt.Errorf("invalid label %q", label)
	}
	col := int(label[0]) - 'a'
	row := '9' - int(label[1])
	if !inside(row, col) {
		return Square{}, fmt.Errorf("invalid label %q", label)
	}
	return Square{Row: row, Col: col}, nil
}

func inside(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// Square is a (row, col) cell coordinate
type Square struct {
	Row int
	Col int
}

func (s Square) String() string {
	return Label(s.Row, s.Col)
}

// Move is a coordinate move between two cells
type Move struct {
	From Square
	To   Square
}

// ParseMove parses a coordinate move such as "h2e2"
func ParseMove(s string) (Move, error) {
	if len(s) != 4 {
		return Move{}, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParseLabel(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	to, err := ParseLabel(s[2:])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	return Move{From: from, To: to}, nil
}

func (m Move) String() string {
	return m.From.String() + m.To.String()
}

// Board holds the piece letter of every cell, indexed [row][col]
type Board [Rows][Cols]Piece

// StartPosition returns the canonical opening position
func StartPosition() Board {
	return ParseFEN(StartFEN)
}

// IsStart reports whether b is the canonical opening position
func (b Board) IsStart() bool {
	return b == StartPosition()
}

// At returns the piece on a cell, Empty outside the board
func (b Board) At(row, col int) Piece {
	if !inside(row, col) {
		return Empty
	}
	return b[row][col]
}

// FEN encodes the placement followed by the side-to-move character
func (b Board) FEN(toMove Camp) string {
	var sb strings.Builder
	for row := 0; row < Rows; row++ {
		if row > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for col := 0; col < Cols; col++ {
			p := b[row][col]
			if p == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(byte(p))
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}
	sb.WriteByte(' ')
	sb.WriteByte(toMove.Char())
	return sb.String()
}

// ParseFEN decodes the placement part of a position string. Anything after
// the first space is ignored. Malformed input never panics; cells that do
// not fit are dropped and unknown characters are skipped.
func ParseFEN(s string) Board {
	var b Board
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	row, col := 0, 0
	for i := 0; i < len(s) && row < Rows; i++ {
		c := s[i]
		switch {
		case c == '/':
			row++
			col = 0
		case c >= '1' && c <= '9':
			col += int(c - '0')
		case IsPiece(c):
			if col < Cols {
				b[row][col] = Piece(c)
			}
			col++
		}
	}
	return b
}

// Mirror rotates the board half a turn, turning a Black-bottom view into
// the Red-bottom convention.
func (b Board) Mirror() Board {
	var m Board
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			m[Rows-1-row][Cols-1-col] = b[row][col]
		}
	}
	return m
}

// Apply returns a copy of b with the piece on m.From moved to m.To
func (b Board) Apply(m Move) Board {
	if !inside(m.From.Row, m.From.Col) || !inside(m.To.Row, m.To.Col) {
		return b
	}
	b[m.To.Row][m.To.Col] = b[m.From.Row][m.From.Col]
	b[m.From.Row][m.From.Col] = Empty
	return b
}

// Cell is an occupied cell as sent to the UI
type Cell struct {
	Piece Piece  `json:"piece"`
	Pos   string `json:"pos"`
}

// Cells lists the occupied cells in row-major order
func (b Board) Cells() []Cell {
	cells := make([]Cell, 0, 32)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if p := b[row][col]; p != Empty {
				cells = append(cells, Cell{Piece: p, Pos: labels[row][col]})
			}
		}
	}
	return cells
}

func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < Rows; row++ {
		fmt.Fprintf(&sb, "%d ", 9-row)
		for col := 0; col < Cols; col++ {
			p := b[row][col]
			if p == Empty {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(byte(p))
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  abcdefghi")
	return sb.String()
}

// Change records a single move detected between two boards
type Change struct {
	Piece Piece  `json:"piece"`
	Camp  Camp   `json:"camp"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Move converts the change back into a coordinate move
func (c Change) Move() (Move, error) {
	return ParseMove(c.From + c.To)
}

// ChangeFromMove describes the effect of playing m on b
func ChangeFromMove(b Board, m Move) Change {
	p := b.At(m.From.Row, m.From.Col)
	return Change{
		Piece: p,
		Camp:  p.Camp(),
		From:  m.From.String(),
		To:    m.To.String(),
	}
}
