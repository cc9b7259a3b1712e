package xiangqi

import (
	"sort"
	"strconv"
)

var redNumerals = [...]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// numeral renders n (1..9) the way the camp writes numbers
func numeral(camp Camp, n int) string {
	if camp == CampRed {
		if n < 1 || n > 9 {
			return strconv.Itoa(n)
		}
		return redNumerals[n]
	}
	return strconv.Itoa(n)
}

// fileNumber counts files from the mover's right hand side, starting at 1
func fileNumber(camp Camp, col int) int {
	if camp == CampRed {
		return Cols - col
	}
	return col + 1
}

// progress grows as a piece advances toward the enemy back rank
func progress(camp Camp, row int) int {
	if camp == CampRed {
		return Rows - 1 - row
	}
	return row
}

// Notation renders m, played on b, in traditional Chinese notation such as
// "炮二平五" or "马8进7". It returns "" when the source cell is empty.
func Notation(b Board, m Move) string {
	p := b.At(m.From.Row, m.From.Col)
	if p == Empty {
		return ""
	}
	camp := p.Camp()

	var name string
	if p.Kind() == Pawn {
		name = pawnName(b, p, m.From)
	} else {
		name = pieceName(b, p, m.From)
	}

	step := progress(camp, m.To.Row) - progress(camp, m.From.Row)
	action := "进"
	if step < 0 {
		action = "退"
		step = -step
	}

	switch p.Kind() {
	case Advisor, Bishop, Knight:
		return name + action + numeral(camp, fileNumber(camp, m.To.Col))
	default:
		if step == 0 {
			return name + "平" + numeral(camp, fileNumber(camp, m.To.Col))
		}
		return name + action + numeral(camp, step)
	}
}

// pieceName names a non-pawn piece, qualifying it with 前 or 后 when another
// piece of the same letter shares its file.
func pieceName(b Board, p Piece, from Square) string {
	camp := p.Camp()
	ahead, behind := 0, 0
	for row := 0; row < Rows; row++ {
		if row == from.Row || b[row][from.Col] != p {
			continue
		}
		if progress(camp, row) > progress(camp, from.Row) {
			ahead++
		} else {
			behind++
		}
	}
	switch {
	case ahead == 0 && behind == 0:
		return p.Glyph() + numeral(camp, fileNumber(camp, from.Col))
	case ahead == 0:
		return "前" + p.Glyph()
	default:
		return "后" + p.Glyph()
	}
}

type pawnSpot struct {
	file     int
	progress int
	row      int
	col      int
}

// pawnName names a pawn. Alone on its file it takes the file numeral. When
// only its own file is crowded, two pawns use 前/后 and more use an ordinal
// counted from the front. When several files are crowded every pawn on them
// is ordered by file from the mover's right, then from the front, and the
// ordinal is written with the camp's numerals.
func pawnName(b Board, p Piece, from Square) string {
	camp := p.Camp()
	var files [Cols][]pawnSpot
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if b[row][col] == p {
				files[col] = append(files[col], pawnSpot{
					file:     fileNumber(camp, col),
					progress: progress(camp, row),
					row:      row,
					col:      col,
				})
			}
		}
	}

	same := files[from.Col]
	if len(same) < 2 {
		return p.Glyph() + numeral(camp, fileNumber(camp, from.Col))
	}

	var pool []pawnSpot
	crowded := 0
	for col := 0; col < Cols; col++ {
		if len(files[col]) >= 2 {
			crowded++
			pool = append(pool, files[col]...)
		}
	}

	if crowded == 1 {
		idx := rankOf(same, from)
		if len(same) == 2 {
			if idx == 0 {
				return "前" + p.Glyph()
			}
			return "后" + p.Glyph()
		}
		return strconv.Itoa(idx+1) + p.Glyph()
	}

	return numeral(camp, rankOf(pool, from)+1) + p.Glyph()
}

// rankOf orders spots by file then front to back and returns the index of from
func rankOf(spots []pawnSpot, from Square) int {
	sorted := append([]pawnSpot(nil), spots...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].file != sorted[j].file {
			return sorted[i].file < sorted[j].file
		}
		return sorted[i].progress > sorted[j].progress
	})
	for i, s := range sorted {
		if s.row == from.Row && s.col == from.Col {
			return i
		}
	}
	return 0
}
