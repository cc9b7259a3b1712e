// Package engine provides position analysis from the chessdb cloud book and
// a local UCI engine process.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrNoResult means the provider knows nothing about the position
	ErrNoResult = errors.New("engine: no result")
	// ErrTerminal means the position is invalid, mated or stalemated
	ErrTerminal = errors.New("engine: terminal position")
)

// Source tags
const (
	SourceCloud  = "cloud"
	SourceEngine = "engine"
)

// MateScore is the score magnitude of a mate in zero
const MateScore = 30000

// Result is one analysis of a position. PVs holds coordinate moves such as
// "h2e2"; Moves holds the notation of the leading PV moves once enriched.
type Result struct {
	Depth  int      `json:"depth"`
	Score  int      `json:"score"`
	Time   int      `json:"time"`
	PVs    []string `json:"pvs"`
	Moves  []string `json:"moves"`
	Source string   `json:"source"`
}

// BestMove returns the first PV move or ""
func (r *Result) BestMove() string {
	if r == nil || len(r.PVs) == 0 {
		return ""
	}
	return r.PVs[0]
}

// Provider analyses a position given as a FEN string with side suffix. A nil
// result with a nil error means the position is terminal or invalid.
type Provider interface {
	Analyze(ctx context.Context, fen string) (*Result, error)
}
