package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/engine"
)

// ErrAlreadyRunning is returned by Start while a worker goroutine is active
var ErrAlreadyRunning = errors.New("tracker: already running")

// Worker drives a Machine from an Observer on a single goroutine
type Worker struct {
	observer  Observer
	provider  engine.Provider
	publisher Publisher
	options   func() Options
	logger    *zap.Logger

	// token is held for the whole life of the worker goroutine
	token chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a stopped worker
func NewWorker(observer Observer, provider engine.Provider, publisher Publisher, options func() Options, logger *zap.Logger) *Worker {
	if options == nil {
		options = DefaultOptions
	}
	return &Worker{
		observer:  observer,
		provider:  provider,
		publisher: publisher,
		options:   options,
		logger:    logger,
		token:     make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine with a fresh Machine. ctx bounds only
// the setup pass; the goroutine runs until Stop. A Stop issued while the
// board is still being located aborts the start.
func (w *Worker) Start(ctx context.Context) error {
	select {
	case w.token <- struct{}{}:
	default:
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	abort := func(err error) error {
		w.mu.Lock()
		if w.done == done {
			w.cancel, w.done = nil, nil
		}
		w.mu.Unlock()
		cancel()
		<-w.token
		close(done)
		return err
	}

	if l, ok := w.observer.(Locator); ok {
		locateCtx, stopLocate := context.WithCancel(ctx)
		unhook := context.AfterFunc(runCtx, stopLocate)
		err := l.Locate(locateCtx)
		unhook()
		stopLocate()
		if err != nil {
			return abort(fmt.Errorf("locate board: %w", err))
		}
	}
	if runCtx.Err() != nil {
		return abort(fmt.Errorf("start cancelled: %w", context.Canceled))
	}
	if s, ok := w.publisher.(sessionStarter); ok {
		s.BeginSession()
	}

	m := NewMachine(w.observer, w.provider, w.publisher, w.options, w.logger)
	go w.run(runCtx, m, done)

	w.logger.Info("Listening started")
	return nil
}

// Stop cancels the goroutine and waits for it to exit. The current tick is
// allowed to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("Listening stopped")
}

// Running reports whether the goroutine is active
func (w *Worker) Running() bool {
	return len(w.token) == 1
}

func (w *Worker) run(ctx context.Context, m *Machine, done chan struct{}) {
	defer close(done)
	defer func() { <-w.token }()

	for {
		opts := w.options()
		t := time.NewTimer(opts.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		obs, ok, err := w.observer.Observe(ctx)
		if err != nil {
			w.logger.Debug("Observation failed", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		m.Step(ctx, obs)
	}
}
