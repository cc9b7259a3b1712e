package iface

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/xiangqi"
)

// MessageType names a UI event
type MessageType string

const (
	MessageTypeOrientation MessageType = "orientation"
	MessageTypePosition    MessageType = "position"
	MessageTypeMove        MessageType = "move"
	MessageTypeAnalysis    MessageType = "analysis"
)

// Message is the envelope of every websocket frame
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OrientationPayload tells the UI which way up to draw the board
type OrientationPayload struct {
	Black bool `json:"black"`
}

// sendBuffer is how many frames a slow client may lag before frames drop
const sendBuffer = 64

// Hub fans tracker events out to websocket clients. It implements
// tracker.Publisher. New clients first receive the latest orientation and
// position.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]chan []byte
	replay  map[MessageType][]byte
	// board follows published positions and moves for the replay frame
	board    xiangqi.Board
	hasBoard bool
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]chan []byte),
		replay:  make(map[MessageType][]byte),
	}
}

// Orientation implements tracker.Publisher
func (h *Hub) Orientation(camp xiangqi.Camp) {
	h.broadcast(MessageTypeOrientation, OrientationPayload{Black: camp == xiangqi.CampBlack})
}

// Position implements tracker.Publisher
func (h *Hub) Position(b xiangqi.Board) {
	data, err := encode(MessageTypePosition, b.Cells())
	if err != nil {
		h.logger.Error("Failed to encode position", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.board, h.hasBoard = b, true
	h.replay[MessageTypePosition] = data
	h.sendLocked(data)
}

// Move implements tracker.Publisher. The replayed position is advanced by
// the move so late clients still get the current board.
func (h *Hub) Move(ev tracker.MoveEvent) {
	data, err := encode(MessageTypeMove, ev)
	if err != nil {
		h.logger.Error("Failed to encode move", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.advanceLocked(ev)
	h.sendLocked(data)
}

func (h *Hub) advanceLocked(ev tracker.MoveEvent) {
	if !h.hasBoard {
		return
	}
	m, err := ev.Move()
	if err != nil {
		h.logger.Warn("Move not replayable, dropping position snapshot", zap.Error(err))
		delete(h.replay, MessageTypePosition)
		h.hasBoard = false
		return
	}
	h.board = h.board.Apply(m)
	pos, err := encode(MessageTypePosition, h.board.Cells())
	if err != nil {
		h.logger.Error("Failed to encode position", zap.Error(err))
		return
	}
	h.replay[MessageTypePosition] = pos
}

// Analysis implements tracker.Publisher
func (h *Hub) Analysis(res *engine.Result) {
	h.broadcast(MessageTypeAnalysis, res)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(t MessageType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: t, Payload: raw})
}

func (h *Hub) broadcast(t MessageType, payload any) {
	data, err := encode(t, payload)
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("type", string(t)), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if t == MessageTypeOrientation {
		h.replay[t] = data
	}
	h.sendLocked(data)
}

func (h *Hub) sendLocked(data []byte) {
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			h.logger.Warn("Client too slow, dropping frame", zap.String("client", id))
		}
	}
}

// subscribe registers a client and queues the replay frames
func (h *Hub) subscribe() (string, <-chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, sendBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, t := range []MessageType{MessageTypeOrientation, MessageTypePosition} {
		if data, ok := h.replay[t]; ok {
			ch <- data
		}
	}
	h.clients[id] = ch
	return id, ch
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

// Handle serves one websocket connection until it closes
func (h *Hub) Handle(c *websocket.Conn) {
	id, frames := h.subscribe()
	h.logger.Info("UI client connected", zap.String("client", id))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range frames {
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Write failed", zap.String("client", id), zap.Error(err))
				return
			}
		}
	}()

	// The UI only listens; reading detects the close
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	h.unsubscribe(id)
	<-done
	h.logger.Info("UI client disconnected", zap.String("client", id))
}
