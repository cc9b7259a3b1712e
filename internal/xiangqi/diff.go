package xiangqi

// ChangeKind classifies the difference between two boards
type ChangeKind int

const (
	// SingleCellChanged covers zero or one differing cell, and two cells
	// that do not form a vacate/occupy pair. Usually detector flicker.
	SingleCellChanged ChangeKind = iota
	// PieceMoved is one cell vacated and one cell occupied
	PieceMoved
	// Indeterminate is three or more differing cells
	Indeterminate
)

func (k ChangeKind) String() string {
	switch k {
	case SingleCellChanged:
		return "single_cell_changed"
	case PieceMoved:
		return "piece_moved"
	case Indeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// Diff compares prev and cur. For PieceMoved the returned Change holds the
// mover taken from the vacated cell of prev.
func Diff(prev, cur Board) (Change, ChangeKind) {
	var ch Change
	n := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if prev[row][col] == cur[row][col] {
				continue
			}
			n++
			if n > 2 {
				return Change{}, Indeterminate
			}
			if cur[row][col] == Empty {
				ch.From = labels[row][col]
				ch.Piece = prev[row][col]
				ch.Camp = ch.Piece.Camp()
			} else {
				ch.To = labels[row][col]
			}
		}
	}
	if n == 2 && ch.From != "" && ch.To != "" {
		return ch, PieceMoved
	}
	return ch, SingleCellChanged
}
