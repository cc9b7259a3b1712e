package xiangqi

import "testing"

func TestDiffKinds(t *testing.T) {
	start := StartPosition()

	t.Run("identical", func(t *testing.T) {
		if _, kind := Diff(start, start); kind != SingleCellChanged {
			t.Errorf("Expected %s, got %s", SingleCellChanged, kind)
		}
	})

	t.Run("one cell", func(t *testing.T) {
		cur := start
		cur[4][4] = 'P'
		if _, kind := Diff(start, cur); kind != SingleCellChanged {
			t.Errorf("Expected %s, got %s", SingleCellChanged, kind)
		}
	})

	t.Run("two vacated", func(t *testing.T) {
		cur := start
		cur[6][0] = Empty
		cur[6][2] = Empty
		if _, kind := Diff(start, cur); kind != SingleCellChanged {
			t.Errorf("Expected %s, got %s", SingleCellChanged, kind)
		}
	})

	t.Run("two filled", func(t *testing.T) {
		cur := start
		cur[4][0] = 'P'
		cur[4][2] = 'P'
		if _, kind := Diff(start, cur); kind != SingleCellChanged {
			t.Errorf("Expected %s, got %s", SingleCellChanged, kind)
		}
	})

	t.Run("three cells", func(t *testing.T) {
		cur := start
		cur[6][0] = Empty
		cur[5][0] = 'P'
		cur[4][4] = 'c'
		if _, kind := Diff(start, cur); kind != Indeterminate {
			t.Errorf("Expected %s, got %s", Indeterminate, kind)
		}
	})

	t.Run("capture", func(t *testing.T) {
		m, _ := ParseMove("b2b9")
		ch, kind := Diff(start, start.Apply(m))
		if kind != PieceMoved {
			t.Fatalf("Expected %s, got %s", PieceMoved, kind)
		}
		want := Change{Piece: 'C', Camp: CampRed, From: "b2", To: "b9"}
		if ch != want {
			t.Errorf("Expected %+v, got %+v", want, ch)
		}
	})
}

func TestDiffEveryMoveFromStart(t *testing.T) {
	start := StartPosition()

	for fr := 0; fr < Rows; fr++ {
		for fc := 0; fc < Cols; fc++ {
			if start[fr][fc] == Empty {
				continue
			}
			for tr := 0; tr < Rows; tr++ {
				for tc := 0; tc < Cols; tc++ {
					if fr == tr && fc == tc {
						continue
					}
					// same-letter captures leave the target cell unchanged
					if start[tr][tc] == start[fr][fc] {
						continue
					}
					m := Move{From: Square{fr, fc}, To: Square{tr, tc}}
					ch, kind := Diff(start, start.Apply(m))
					if kind != PieceMoved {
						t.Fatalf("%s: expected %s, got %s", m, PieceMoved, kind)
					}
					if ch.From != m.From.String() || ch.To != m.To.String() {
						t.Fatalf("%s: got change %+v", m, ch)
					}
					if ch.Piece != start[fr][fc] || ch.Camp != start[fr][fc].Camp() {
						t.Fatalf("%s: wrong mover %+v", m, ch)
					}
				}
			}
		}
	}
}
