package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Book is a remote position lookup such as CloudBook
type Book interface {
	Query(ctx context.Context, fen string, timeout time.Duration) (*Result, error)
}

// Searcher is a running local engine such as Session. A nil result with a
// nil error means the side to move has no legal move.
type Searcher interface {
	Search(ctx context.Context, fen string, l Limits) (*Result, error)
	Close() error
}

// SpawnFunc starts a local engine
type SpawnFunc func(ctx context.Context, path string, opt Options) (Searcher, error)

// SpawnSession starts a UCI Session for path
func SpawnSession(ctx context.Context, path string, opt Options) (Searcher, error) {
	return NewSession(ctx, path, nil, opt)
}

// Params are read before every analysis so configuration edits apply
// without a restart.
type Params struct {
	CloudEnabled bool
	CloudTimeout time.Duration
	EnginePath   string
	Options      Options
	Limits       Limits
}

// Fallback asks the book first and the local engine on a miss
type Fallback struct {
	book   Book
	spawn  SpawnFunc
	params func() Params
	logger *zap.Logger

	mu       sync.Mutex
	searcher Searcher
	path     string
	opts     Options
}

// NewFallback composes a book and a local engine. book may be nil.
func NewFallback(book Book, spawn SpawnFunc, params func() Params, logger *zap.Logger) *Fallback {
	if spawn == nil {
		spawn = SpawnSession
	}
	return &Fallback{
		book:   book,
		spawn:  spawn,
		params: params,
		logger: logger,
	}
}

// Analyze implements Provider
func (f *Fallback) Analyze(ctx context.Context, fen string) (*Result, error) {
	p := f.params()

	if p.CloudEnabled && f.book != nil {
		res, err := f.book.Query(ctx, fen, p.CloudTimeout)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, ErrTerminal):
			f.logger.Info("Cloud book reports terminal position", zap.String("fen", fen), zap.Error(err))
			return nil, nil
		case errors.Is(err, ErrNoResult):
			f.logger.Debug("Cloud book miss", zap.String("fen", fen))
		default:
			f.logger.Warn("Cloud book query failed", zap.String("fen", fen), zap.Error(err))
		}
	}

	if p.EnginePath == "" {
		return nil, ErrNoResult
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.session(ctx, p)
	if err != nil {
		return nil, err
	}
	res, err := s.Search(ctx, fen, p.Limits)
	if err != nil {
		// the process may be wedged mid-search; start fresh next time
		f.closeLocked()
		return nil, fmt.Errorf("engine search: %w", err)
	}
	if res == nil {
		f.logger.Info("Engine reports no legal move", zap.String("fen", fen))
	}
	return res, nil
}

// session returns the running engine, restarting it when the binary or
// startup options changed.
func (f *Fallback) session(ctx context.Context, p Params) (Searcher, error) {
	if f.searcher != nil && f.path == p.EnginePath && f.opts == p.Options {
		return f.searcher, nil
	}
	f.closeLocked()

	s, err := f.spawn(ctx, p.EnginePath, p.Options)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", p.EnginePath, err)
	}
	f.logger.Info("Engine started",
		zap.String("path", p.EnginePath),
		zap.Int("threads", p.Options.Threads),
		zap.Int("hash_mb", p.Options.HashMB))

	f.searcher = s
	f.path = p.EnginePath
	f.opts = p.Options
	return s, nil
}

func (f *Fallback) closeLocked() {
	if f.searcher == nil {
		return
	}
	if err := f.searcher.Close(); err != nil {
		f.logger.Warn("Engine close failed", zap.Error(err))
	}
	f.searcher = nil
}

// Close stops the local engine if running
func (f *Fallback) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
	return nil
}
