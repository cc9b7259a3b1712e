package engine

import "github.com/atopx/chessboard/internal/xiangqi"

// Enrich fills r.Moves with the notation of the best move and of up to extra
// following PV moves, playing each move along the line. It returns the change
// and the board expected after the best move; ok is false when the best move
// is missing or unusable.
func Enrich(r *Result, b xiangqi.Board, extra int) (expected xiangqi.Change, next xiangqi.Board, ok bool) {
	if r == nil || len(r.PVs) == 0 {
		return xiangqi.Change{}, b, false
	}
	best, err := xiangqi.ParseMove(r.PVs[0])
	if err != nil || b.At(best.From.Row, best.From.Col) == xiangqi.Empty {
		return xiangqi.Change{}, b, false
	}

	r.Moves = []string{xiangqi.Notation(b, best)}
	expected = xiangqi.ChangeFromMove(b, best)
	next = b.Apply(best)

	line := next
	for i := 1; i < len(r.PVs) && i <= extra; i++ {
		m, err := xiangqi.ParseMove(r.PVs[i])
		if err != nil {
			break
		}
		r.Moves = append(r.Moves, xiangqi.Notation(line, m))
		line = line.Apply(m)
	}
	return expected, next, true
}
