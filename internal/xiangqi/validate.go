package xiangqi

import "fmt"

// RuleError describes the first placement rule a board breaks
type RuleError struct {
	Rule  string
	Row   int
	Col   int
	Piece Piece
}

func (e *RuleError) Error() string {
	if e.Piece == Empty {
		return fmt.Sprintf("illegal board: %s", e.Rule)
	}
	return fmt.Sprintf("illegal board: %s (%c at %s)", e.Rule, e.Piece, Label(e.Row, e.Col))
}

// piece count limits per letter
var pieceLimits = map[Piece]int{
	'K': 1, 'k': 1,
	'A': 2, 'a': 2,
	'B': 2, 'b': 2,
	'N': 2, 'n': 2,
	'R': 2, 'r': 2,
	'C': 2, 'c': 2,
	'P': 5, 'p': 5,
}

// advisor and bishop points as (row, col), Black on top
var (
	blackAdvisorPoints = []Square{{0, 3}, {0, 5}, {1, 4}, {2, 3}, {2, 5}}
	redAdvisorPoints   = []Square{{9, 3}, {9, 5}, {8, 4}, {7, 3}, {7, 5}}
	blackBishopPoints  = []Square{{0, 2}, {0, 6}, {2, 0}, {2, 4}, {2, 8}, {4, 2}, {4, 6}}
	redBishopPoints    = []Square{{9, 2}, {9, 6}, {7, 0}, {7, 4}, {7, 8}, {5, 2}, {5, 6}}
)

func onPoint(points []Square, row, col int) bool {
	for _, s := range points {
		if s.Row == row && s.Col == col {
			return true
		}
	}
	return false
}

// Validate checks piece counts and the placement constraints of each piece
// type. It returns nil or a *RuleError for the first violation found.
func Validate(b Board) error {
	counts := make(map[Piece]int, len(pieceLimits))
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			p := b[row][col]
			if p == Empty {
				continue
			}
			if rule := placementRule(p, row, col); rule != "" {
				return &RuleError{Rule: rule, Row: row, Col: col, Piece: p}
			}
			counts[p]++
			if counts[p] > pieceLimits[p] {
				return &RuleError{
					Rule:  fmt.Sprintf("more than %d %s %s", pieceLimits[p], p.Camp(), p.Kind()),
					Row:   row,
					Col:   col,
					Piece: p,
				}
			}
		}
	}
	if counts['K'] != 1 {
		return &RuleError{Rule: "red king missing"}
	}
	if counts['k'] != 1 {
		return &RuleError{Rule: "black king missing"}
	}
	return nil
}

// Valid reports whether b passes Validate
func Valid(b Board) bool {
	return Validate(b) == nil
}

func placementRule(p Piece, row, col int) string {
	switch p {
	case 'k':
		if row > 2 || col < 3 || col > 5 {
			return "king outside palace"
		}
	case 'K':
		if row < 7 || col < 3 || col > 5 {
			return "king outside palace"
		}
	case 'a':
		if !onPoint(blackAdvisorPoints, row, col) {
			return "advisor off palace point"
		}
	case 'A':
		if !onPoint(redAdvisorPoints, row, col) {
			return "advisor off palace point"
		}
	case 'b':
		if !onPoint(blackBishopPoints, row, col) {
			return "bishop off own-half point"
		}
	case 'B':
		if !onPoint(redBishopPoints, row, col) {
			return "bishop off own-half point"
		}
	case 'p':
		if row < 3 {
			return "pawn behind start rank"
		}
		if row < 5 && col%2 == 1 {
			return "pawn on odd file before river"
		}
	case 'P':
		if row > 6 {
			return "pawn behind start rank"
		}
		if row > 4 && col%2 == 1 {
			return "pawn on odd file before river"
		}
	}
	return ""
}
