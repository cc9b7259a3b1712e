package iface

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/xiangqi"
)

func receive(t *testing.T, ch <-chan []byte) Message {
	t.Helper()
	select {
	case data := <-ch:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for frame")
	}
	return Message{}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())

	id, frames := hub.subscribe()
	if hub.Clients() != 1 {
		t.Fatalf("Expected 1 client, got %d", hub.Clients())
	}

	hub.Orientation(xiangqi.CampBlack)
	msg := receive(t, frames)
	if msg.Type != MessageTypeOrientation {
		t.Fatalf("Expected orientation, got %s", msg.Type)
	}
	var o OrientationPayload
	if err := json.Unmarshal(msg.Payload, &o); err != nil {
		t.Fatalf("Failed to decode orientation: %v", err)
	}
	if !o.Black {
		t.Error("Expected black orientation")
	}

	hub.Move(tracker.MoveEvent{
		Change:   xiangqi.Change{Piece: 'C', Camp: xiangqi.CampRed, From: "h2", To: "e2"},
		Notation: "炮二平五",
	})
	msg = receive(t, frames)
	if msg.Type != MessageTypeMove {
		t.Fatalf("Expected move, got %s", msg.Type)
	}
	var ev struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Notation string `json:"notation"`
	}
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("Failed to decode move: %v", err)
	}
	if ev.From != "h2" || ev.To != "e2" || ev.Notation != "炮二平五" {
		t.Errorf("Unexpected move payload: %+v", ev)
	}

	hub.Analysis(&engine.Result{Depth: 20, Moves: []string{"h2e2"}})
	if msg = receive(t, frames); msg.Type != MessageTypeAnalysis {
		t.Fatalf("Expected analysis, got %s", msg.Type)
	}

	hub.unsubscribe(id)
	if hub.Clients() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.Clients())
	}
	if _, ok := <-frames; ok {
		t.Error("Expected frames channel to be closed")
	}
}

func TestHubReplay(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.Orientation(xiangqi.CampRed)
	hub.Position(xiangqi.StartPosition())

	_, frames := hub.subscribe()
	if msg := receive(t, frames); msg.Type != MessageTypeOrientation {
		t.Errorf("Expected orientation first, got %s", msg.Type)
	}
	msg := receive(t, frames)
	if msg.Type != MessageTypePosition {
		t.Fatalf("Expected position, got %s", msg.Type)
	}
	var cells []xiangqi.Cell
	if err := json.Unmarshal(msg.Payload, &cells); err != nil {
		t.Fatalf("Failed to decode position: %v", err)
	}
	if len(cells) != 32 {
		t.Errorf("Expected 32 cells, got %d", len(cells))
	}

	// late clients get the board as it stands after the move
	hub.Move(tracker.MoveEvent{Change: xiangqi.Change{Piece: 'C', Camp: xiangqi.CampRed, From: "h2", To: "e2"}})
	if msg := receive(t, frames); msg.Type != MessageTypeMove {
		t.Fatalf("Expected move, got %s", msg.Type)
	}

	_, late := hub.subscribe()
	if msg := receive(t, late); msg.Type != MessageTypeOrientation {
		t.Errorf("Expected orientation, got %s", msg.Type)
	}
	msg = receive(t, late)
	if msg.Type != MessageTypePosition {
		t.Fatalf("Expected position replay after move, got %s", msg.Type)
	}
	cells = nil
	if err := json.Unmarshal(msg.Payload, &cells); err != nil {
		t.Fatalf("Failed to decode position: %v", err)
	}
	want := play(t, xiangqi.StartPosition(), "h2e2").Cells()
	if len(cells) != len(want) {
		t.Fatalf("Expected %d cells, got %d", len(want), len(cells))
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("Cell %d: expected %+v, got %+v", i, want[i], cells[i])
		}
	}
}

func TestHubReplayFollowsReset(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.Position(xiangqi.StartPosition())
	hub.Move(tracker.MoveEvent{Change: xiangqi.Change{Piece: 'C', Camp: xiangqi.CampRed, From: "h2", To: "e2"}})
	fresh := play(t, xiangqi.StartPosition(), "b2b6")
	hub.Position(fresh)

	_, late := hub.subscribe()
	msg := receive(t, late)
	if msg.Type != MessageTypePosition {
		t.Fatalf("Expected position, got %s", msg.Type)
	}
	var cells []xiangqi.Cell
	if err := json.Unmarshal(msg.Payload, &cells); err != nil {
		t.Fatalf("Failed to decode position: %v", err)
	}
	want := fresh.Cells()
	for i := range want {
		if i >= len(cells) || cells[i] != want[i] {
			t.Fatalf("Replay does not match the republished board at cell %d", i)
		}
	}
}

func play(t *testing.T, b xiangqi.Board, move string) xiangqi.Board {
	t.Helper()
	m, err := xiangqi.ParseMove(move)
	if err != nil {
		t.Fatalf("Failed to parse move: %v", err)
	}
	return b.Apply(m)
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, frames := hub.subscribe()

	for i := 0; i < sendBuffer+10; i++ {
		hub.Analysis(&engine.Result{Depth: i})
	}
	if len(frames) != sendBuffer {
		t.Errorf("Expected %d queued frames, got %d", sendBuffer, len(frames))
	}
}
