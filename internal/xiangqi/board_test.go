package xiangqi

import (
	"strings"
	"testing"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "a9"},
		{9, 8, "i0"},
		{7, 7, "h2"},
		{2, 4, "e7"},
		{10, 0, ""},
	}

	for _, tt := range tests {
		if got := Label(tt.row, tt.col); got != tt.want {
			t.Errorf("Label(%d, %d) = %q, expected %q", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("h2e2")
	if err != nil {
		t.Fatalf("Failed to parse move: %v", err)
	}
	if m.From != (Square{Row: 7, Col: 7}) || m.To != (Square{Row: 7, Col: 4}) {
		t.Errorf("Unexpected move %+v", m)
	}
	if m.String() != "h2e2" {
		t.Errorf("Expected h2e2, got %s", m.String())
	}

	for _, bad := range []string{"", "h2e", "z2e2", "h2eA", "h2e22"} {
		if _, err := ParseMove(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestStartFEN(t *testing.T) {
	b := StartPosition()

	if got := b.FEN(CampRed); got != StartFEN+" w" {
		t.Errorf("Expected %s w, got %s", StartFEN, got)
	}
	if got := b.FEN(CampBlack); !strings.HasSuffix(got, " b") {
		t.Errorf("Expected black suffix, got %s", got)
	}
	if !b.IsStart() {
		t.Error("Start position not recognised")
	}
	if b[0][4] != 'k' || b[9][4] != 'K' || b[7][1] != 'C' || b[3][0] != 'p' {
		t.Errorf("Unexpected start layout:\n%s", b)
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C2C4/9/RNBAKABNR",
		"3k5/9/9/9/9/9/9/9/9/4K4",
		"2bakab2/9/4n4/p3c1R1p/9/2P6/P3P3P/4B4/4A4/2BAK4",
	}

	for _, fen := range fens {
		b := ParseFEN(fen + " w")
		got := b.FEN(CampRed)
		if got != fen+" w" {
			t.Errorf("Round trip mismatch: %s -> %s", fen, got)
		}
		if ParseFEN(got) != b {
			t.Errorf("Decode after encode changed board for %s", fen)
		}
	}
}

func TestParseFENMalformed(t *testing.T) {
	// Must not panic
	inputs := []string{"", "/////////////", "rnbakabnrrrrr/99", "xyz", "9/9/9/9/9/9/9/9/9/9/9/9/RNBAKABNR"}
	for _, s := range inputs {
		_ = ParseFEN(s)
	}
}

func TestMirrorInvolution(t *testing.T) {
	boards := []Board{
		StartPosition(),
		ParseFEN("2bakab2/9/4n4/p3c1R1p/9/2P6/P3P3P/4B4/4A4/2BAK4"),
		{},
	}

	for _, b := range boards {
		if b.Mirror().Mirror() != b {
			t.Errorf("Mirror is not an involution for\n%s", b)
		}
	}

	m := StartPosition().Mirror()
	if m[0][4] != 'K' || m[9][4] != 'k' {
		t.Errorf("Mirror did not swap sides:\n%s", m)
	}
}

func TestApply(t *testing.T) {
	b := StartPosition()
	m, _ := ParseMove("h2e2")

	next := b.Apply(m)
	if next[7][7] != Empty || next[7][4] != 'C' {
		t.Errorf("Apply did not move the cannon:\n%s", next)
	}
	if b[7][7] != 'C' {
		t.Error("Apply modified the receiver")
	}
}

func TestCells(t *testing.T) {
	cells := StartPosition().Cells()
	if len(cells) != 32 {
		t.Fatalf("Expected 32 cells, got %d", len(cells))
	}
	if cells[0].Pos != "a9" || cells[0].Piece != 'r' {
		t.Errorf("Unexpected first cell %+v", cells[0])
	}
}

func TestChangeFromMove(t *testing.T) {
	m, _ := ParseMove("h0g2")
	ch := ChangeFromMove(StartPosition(), m)

	want := Change{Piece: 'N', Camp: CampRed, From: "h0", To: "g2"}
	if ch != want {
		t.Errorf("Expected %+v, got %+v", want, ch)
	}

	back, err := ch.Move()
	if err != nil || back != m {
		t.Errorf("Change.Move() = %v, %v", back, err)
	}
}
