package tracker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/xiangqi"
)

// maxAnomalies is how many flicker readings force a reset
const maxAnomalies = 3

// Machine holds the accepted game state. It is not safe for concurrent use;
// a Worker owns it exclusively.
type Machine struct {
	observer  Observer
	provider  engine.Provider
	publisher Publisher
	options   func() Options
	logger    *zap.Logger

	state     State
	baseline  xiangqi.Board
	expected  *xiangqi.Board
	predicted xiangqi.Change
	anomalies int
}

// NewMachine creates a machine in the Uninitialized state
func NewMachine(observer Observer, provider engine.Provider, publisher Publisher, options func() Options, logger *zap.Logger) *Machine {
	if options == nil {
		options = DefaultOptions
	}
	return &Machine{
		observer:  observer,
		provider:  provider,
		publisher: publisher,
		options:   options,
		logger:    logger,
	}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Baseline returns the last accepted board
func (m *Machine) Baseline() xiangqi.Board {
	return m.baseline
}

// Expected returns the board forecast after the own camp's best move
func (m *Machine) Expected() (xiangqi.Board, bool) {
	if m.expected == nil {
		return xiangqi.Board{}, false
	}
	return *m.expected, true
}

// Step performs exactly one transition for obs
func (m *Machine) Step(ctx context.Context, obs Observation) {
	switch m.state {
	case Uninitialized:
		m.initialize(ctx, obs)
	case Rejected:
		m.logger.Debug("Re-entering uninitialized after reset")
		m.state = Uninitialized
	case OpeningPosition:
		if obs.Board == m.baseline || obs.Board.IsStart() {
			return
		}
		m.classify(ctx, obs)
	case AwaitingOwnMove, AwaitingOpponentMove:
		if obs.Board == m.baseline {
			return
		}
		if m.expected != nil && obs.Board == *m.expected {
			m.acceptForecast()
			return
		}
		if !m.confirm(ctx, obs) {
			return
		}
		if err := xiangqi.Validate(obs.Board); err != nil {
			m.logRule(err)
			return
		}
		m.classify(ctx, obs)
	}
}

func (m *Machine) initialize(ctx context.Context, obs Observation) {
	m.baseline = obs.Board
	m.expected = nil
	m.anomalies = 0
	m.publisher.Orientation(obs.Camp)
	m.publisher.Position(obs.Board)

	toMove := obs.Camp
	switch {
	case obs.Board.IsStart():
		toMove = xiangqi.CampRed
		m.state = OpeningPosition
	case obs.ToMove != xiangqi.CampNone:
		toMove = obs.ToMove
		fallthrough
	default:
		if toMove == obs.Camp {
			m.state = AwaitingOwnMove
		} else {
			m.state = AwaitingOpponentMove
		}
	}

	m.logger.Info("Board accepted",
		zap.String("camp", obs.Camp.String()),
		zap.String("to_move", toMove.String()),
		zap.String("state", m.state.String()),
		zap.String("fen", obs.Board.FEN(toMove)))

	if toMove == obs.Camp {
		m.analyze(ctx, obs.Camp, obs.Board)
	}
}

// classify diffs obs against the baseline and acts on the result
func (m *Machine) classify(ctx context.Context, obs Observation) {
	ch, kind := xiangqi.Diff(m.baseline, obs.Board)
	switch kind {
	case xiangqi.PieceMoved:
		m.moved(ctx, obs, ch)
	case xiangqi.SingleCellChanged:
		m.anomalies++
		m.logger.Debug("Single cell change", zap.Int("anomalies", m.anomalies))
		if m.anomalies >= maxAnomalies {
			m.logger.Info("Too many unexplained changes, resetting")
			m.anomalies = 0
			m.expected = nil
			m.state = Rejected
		}
	case xiangqi.Indeterminate:
		m.logger.Info("Board changed beyond a single move, resetting",
			zap.String("fen", obs.Board.FEN(obs.Camp)))
		m.baseline = obs.Board
		m.expected = nil
		m.anomalies = 0
		m.publisher.Position(obs.Board)
		m.state = Uninitialized
	}
}

func (m *Machine) moved(ctx context.Context, obs Observation, ch xiangqi.Change) {
	ev := MoveEvent{Change: ch}
	if mv, err := ch.Move(); err == nil {
		ev.Notation = xiangqi.Notation(m.baseline, mv)
	}

	m.baseline = obs.Board
	m.expected = nil
	m.anomalies = 0
	m.publisher.Move(ev)

	m.logger.Info("Piece moved",
		zap.String("camp", ch.Camp.String()),
		zap.String("move", ch.From+ch.To),
		zap.String("notation", ev.Notation))

	if ch.Camp == obs.Camp {
		m.state = AwaitingOpponentMove
		return
	}
	m.state = AwaitingOwnMove
	m.analyze(ctx, obs.Camp, obs.Board)
}

// acceptForecast takes the expected board without re-confirming or analysing
func (m *Machine) acceptForecast() {
	prev := m.baseline
	ev := MoveEvent{Change: m.predicted}
	if mv, err := m.predicted.Move(); err == nil {
		ev.Notation = xiangqi.Notation(prev, mv)
	}

	m.baseline = *m.expected
	m.expected = nil
	m.anomalies = 0
	m.publisher.Move(ev)

	if m.state == AwaitingOwnMove {
		m.state = AwaitingOpponentMove
	} else {
		m.state = AwaitingOwnMove
	}
	m.logger.Info("Forecast move played",
		zap.String("move", m.predicted.From+m.predicted.To),
		zap.String("notation", ev.Notation))
}

// confirm waits the confirm delay and checks the board is still the same
func (m *Machine) confirm(ctx context.Context, obs Observation) bool {
	if d := m.options().ConfirmDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}

	again, ok, err := m.observer.Observe(ctx)
	if err != nil || !ok {
		m.logger.Debug("Confirmation observation missed", zap.Error(err))
		return false
	}
	if again.Board != obs.Board || again.Camp != obs.Camp {
		m.logger.Debug("Board still changing, deferring")
		return false
	}
	return true
}

func (m *Machine) analyze(ctx context.Context, camp xiangqi.Camp, b xiangqi.Board) {
	m.expected = nil
	if m.provider == nil {
		return
	}

	fen := b.FEN(camp)
	res, err := m.provider.Analyze(ctx, fen)
	if err != nil {
		m.logger.Warn("Analysis failed", zap.String("fen", fen), zap.Error(err))
		return
	}
	if res == nil {
		m.logger.Info("No analysis for terminal position", zap.String("fen", fen))
		return
	}

	ch, next, ok := engine.Enrich(res, b, m.options().PVNotation)
	if !ok {
		m.logger.Warn("Analysis has no usable move", zap.String("fen", fen), zap.Strings("pv", res.PVs))
		return
	}
	m.predicted = ch
	m.expected = &next
	m.publisher.Analysis(res)

	m.logger.Info("Analysis ready",
		zap.String("source", res.Source),
		zap.Int("depth", res.Depth),
		zap.Int("score", res.Score),
		zap.Strings("moves", res.Moves))
}

func (m *Machine) logRule(err error) {
	var re *xiangqi.RuleError
	if errors.As(err, &re) {
		// board-wide rules carry no cell
		if re.Piece == xiangqi.Empty {
			m.logger.Warn("Illegal board discarded", zap.String("rule", re.Rule))
			return
		}
		m.logger.Warn("Illegal board discarded",
			zap.String("rule", re.Rule),
			zap.String("cell", xiangqi.Label(re.Row, re.Col)),
			zap.String("piece", re.Piece.String()))
		return
	}
	m.logger.Warn("Illegal board discarded", zap.Error(err))
}
