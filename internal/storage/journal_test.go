package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/xiangqi"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenJournal(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// TestJournalRecordsSession tests that published events land in one session
func TestJournalRecordsSession(t *testing.T) {
	j := openTestJournal(t)

	j.BeginSession()
	id := j.Current()
	if id == "" {
		t.Fatal("No session id")
	}

	start := xiangqi.StartPosition()
	j.Orientation(xiangqi.CampRed)
	j.Position(start)
	j.Analysis(&engine.Result{Depth: 20, Score: 35, PVs: []string{"h2e2"}, Moves: []string{"炮二平五"}, Source: engine.SourceCloud})
	j.Move(tracker.MoveEvent{
		Change:   xiangqi.Change{Piece: 'C', Camp: xiangqi.CampRed, From: "h2", To: "e2"},
		Notation: "炮二平五",
	})

	entries, err := j.Entries(id)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	kinds := []string{KindOrientation, KindPosition, KindAnalysis, KindMove}
	for i, e := range entries {
		if e.Kind != kinds[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, kinds[i], e.Kind)
		}
		if e.Seq != uint64(i+1) {
			t.Errorf("Entry %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
	}

	if entries[1].FEN != start.FEN(xiangqi.CampNone) {
		t.Errorf("Unexpected position %s", entries[1].FEN)
	}
	if entries[2].Analysis == nil || entries[2].Analysis.Moves[0] != "炮二平五" {
		t.Errorf("Analysis not stored: %+v", entries[2].Analysis)
	}
	mv := entries[3].Move
	if mv == nil || mv.Piece != 'C' || mv.From != "h2" || mv.Notation != "炮二平五" {
		t.Errorf("Move not stored: %+v", mv)
	}

	sessions, err := j.Sessions()
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Camp != xiangqi.CampRed || sessions[0].Moves != 1 {
		t.Errorf("Unexpected session summary %+v", sessions[0])
	}
}

// TestJournalLazySession tests that events before BeginSession open one
func TestJournalLazySession(t *testing.T) {
	j := openTestJournal(t)

	j.Position(xiangqi.StartPosition())
	if j.Current() == "" {
		t.Fatal("Session was not created")
	}

	first := j.Current()
	j.BeginSession()
	if j.Current() == first {
		t.Error("BeginSession reused the session id")
	}

	sessions, err := j.Sessions()
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestJournalUnknownSession(t *testing.T) {
	j := openTestJournal(t)

	if _, err := j.Entries("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

// TestJournalPersistence tests that sessions survive reopening
func TestJournalPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenJournal(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	j.BeginSession()
	id := j.Current()
	j.Position(xiangqi.StartPosition())
	if err := j.Close(); err != nil {
		t.Fatalf("Failed to close journal: %v", err)
	}

	// Events after close are dropped
	j.Position(xiangqi.StartPosition())

	reopened, err := OpenJournal(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to reopen journal: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.Entries(id)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}
