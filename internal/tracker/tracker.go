// Package tracker reconciles noisy board observations into a consistent
// game: it decides who moved, publishes moves and requests analysis.
package tracker

import (
	"context"
	"time"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/xiangqi"
)

// State of the reconciliation machine
type State int

const (
	Uninitialized State = iota
	OpeningPosition
	AwaitingOwnMove
	AwaitingOpponentMove
	Rejected
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case OpeningPosition:
		return "opening_position"
	case AwaitingOwnMove:
		return "awaiting_own_move"
	case AwaitingOpponentMove:
		return "awaiting_opponent_move"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Observation is one recognised board. Board is always Red-bottom; Camp is
// the side playing from the bottom of the screen. ToMove is optional and
// overrides the side-to-move guess for non-opening positions.
type Observation struct {
	Camp   xiangqi.Camp
	ToMove xiangqi.Camp
	Board  xiangqi.Board
}

// Observer produces observations. ok is false when the frame held no usable
// board.
type Observer interface {
	Observe(ctx context.Context) (obs Observation, ok bool, err error)
}

// Locator is implemented by observers that need a setup pass before polling
type Locator interface {
	Locate(ctx context.Context) error
}

// MoveEvent is a published move
type MoveEvent struct {
	xiangqi.Change
	Notation string `json:"notation"`
}

// Publisher receives everything the UI needs
type Publisher interface {
	Orientation(camp xiangqi.Camp)
	Position(b xiangqi.Board)
	Move(ev MoveEvent)
	Analysis(res *engine.Result)
}

// Options are re-read on every tick
type Options struct {
	PollInterval time.Duration
	ConfirmDelay time.Duration
	// PVNotation is how many PV moves after the best one get notation
	PVNotation int
}

// DefaultOptions match the stock configuration
func DefaultOptions() Options {
	return Options{
		PollInterval: 100 * time.Millisecond,
		ConfirmDelay: 200 * time.Millisecond,
		PVNotation:   3,
	}
}

// Multi fans events out to several publishers
type Multi []Publisher

func (m Multi) Orientation(camp xiangqi.Camp) {
	for _, p := range m {
		p.Orientation(camp)
	}
}

func (m Multi) Position(b xiangqi.Board) {
	for _, p := range m {
		p.Position(b)
	}
}

func (m Multi) Move(ev MoveEvent) {
	for _, p := range m {
		p.Move(ev)
	}
}

func (m Multi) Analysis(res *engine.Result) {
	for _, p := range m {
		p.Analysis(res)
	}
}

// BeginSession forwards to publishers that track listening sessions
func (m Multi) BeginSession() {
	for _, p := range m {
		if s, ok := p.(sessionStarter); ok {
			s.BeginSession()
		}
	}
}

type sessionStarter interface {
	BeginSession()
}
