package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeBook struct {
	res   *Result
	err   error
	calls int
}

func (b *fakeBook) Query(ctx context.Context, fen string, timeout time.Duration) (*Result, error) {
	b.calls++
	return b.res, b.err
}

type fakeSearcher struct {
	res    *Result
	err    error
	calls  int
	closed bool
}

func (s *fakeSearcher) Search(ctx context.Context, fen string, l Limits) (*Result, error) {
	s.calls++
	return s.res, s.err
}

func (s *fakeSearcher) Close() error {
	s.closed = true
	return nil
}

type spawnRecorder struct {
	searchers []*fakeSearcher
	next      func() *fakeSearcher
}

func (r *spawnRecorder) spawn(ctx context.Context, path string, opt Options) (Searcher, error) {
	s := r.next()
	r.searchers = append(r.searchers, s)
	return s, nil
}

func TestFallbackPrefersBook(t *testing.T) {
	book := &fakeBook{res: &Result{PVs: []string{"h2e2"}, Source: SourceCloud}}
	rec := &spawnRecorder{next: func() *fakeSearcher { return &fakeSearcher{} }}
	params := Params{CloudEnabled: true, CloudTimeout: time.Second, EnginePath: "pikafish"}

	f := NewFallback(book, rec.spawn, func() Params { return params }, zap.NewNop())
	res, err := f.Analyze(context.Background(), "fen w")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Source != SourceCloud {
		t.Errorf("Expected cloud result, got %+v", res)
	}
	if len(rec.searchers) != 0 {
		t.Error("Engine should not start on a book hit")
	}
}

func TestFallbackToEngineOnMiss(t *testing.T) {
	for _, bookErr := range []error{ErrNoResult, errors.New("timeout")} {
		book := &fakeBook{err: bookErr}
		rec := &spawnRecorder{next: func() *fakeSearcher {
			return &fakeSearcher{res: &Result{PVs: []string{"h0g2"}, Source: SourceEngine}}
		}}
		params := Params{CloudEnabled: true, EnginePath: "pikafish", Limits: Limits{Depth: 10}}

		f := NewFallback(book, rec.spawn, func() Params { return params }, zap.NewNop())
		res, err := f.Analyze(context.Background(), "fen w")
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if res.Source != SourceEngine {
			t.Errorf("Expected engine result, got %+v", res)
		}
	}
}

func TestFallbackTerminalSkipsEngine(t *testing.T) {
	book := &fakeBook{err: ErrTerminal}
	rec := &spawnRecorder{next: func() *fakeSearcher { return &fakeSearcher{} }}
	params := Params{CloudEnabled: true, EnginePath: "pikafish"}

	f := NewFallback(book, rec.spawn, func() Params { return params }, zap.NewNop())
	res, err := f.Analyze(context.Background(), "fen w")
	if res != nil || err != nil {
		t.Errorf("Expected nil result and nil error, got %+v, %v", res, err)
	}
	if len(rec.searchers) != 0 {
		t.Error("Engine should not start for a terminal position")
	}
}

func TestFallbackCloudDisabled(t *testing.T) {
	book := &fakeBook{res: &Result{PVs: []string{"h2e2"}}}
	rec := &spawnRecorder{next: func() *fakeSearcher {
		return &fakeSearcher{res: &Result{PVs: []string{"h0g2"}, Source: SourceEngine}}
	}}
	params := Params{CloudEnabled: false, EnginePath: "pikafish"}

	f := NewFallback(book, rec.spawn, func() Params { return params }, zap.NewNop())
	if _, err := f.Analyze(context.Background(), "fen w"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if book.calls != 0 {
		t.Errorf("Book queried %d times while disabled", book.calls)
	}
}

func TestFallbackNoEngine(t *testing.T) {
	f := NewFallback(nil, nil, func() Params { return Params{} }, zap.NewNop())
	if _, err := f.Analyze(context.Background(), "fen w"); !errors.Is(err, ErrNoResult) {
		t.Errorf("Expected ErrNoResult, got %v", err)
	}
}

func TestFallbackRestartsOnOptionChange(t *testing.T) {
	rec := &spawnRecorder{next: func() *fakeSearcher {
		return &fakeSearcher{res: &Result{PVs: []string{"h0g2"}}}
	}}
	params := Params{EnginePath: "pikafish", Options: Options{Threads: 1}}

	f := NewFallback(nil, rec.spawn, func() Params { return params }, zap.NewNop())
	defer f.Close()

	for i := 0; i < 2; i++ {
		if _, err := f.Analyze(context.Background(), "fen w"); err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
	}
	if len(rec.searchers) != 1 {
		t.Fatalf("Expected one engine, got %d", len(rec.searchers))
	}

	params.Options.Threads = 4
	if _, err := f.Analyze(context.Background(), "fen w"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(rec.searchers) != 2 {
		t.Fatalf("Expected restart, got %d engines", len(rec.searchers))
	}
	if !rec.searchers[0].closed {
		t.Error("Old engine was not closed")
	}
}

func TestFallbackClosesFailedEngine(t *testing.T) {
	rec := &spawnRecorder{next: func() *fakeSearcher {
		return &fakeSearcher{err: errors.New("broken pipe")}
	}}
	params := Params{EnginePath: "pikafish"}

	f := NewFallback(nil, rec.spawn, func() Params { return params }, zap.NewNop())
	if _, err := f.Analyze(context.Background(), "fen w"); err == nil {
		t.Fatal("Expected search error")
	}
	if !rec.searchers[0].closed {
		t.Error("Failed engine was not closed")
	}
	if _, err := f.Analyze(context.Background(), "fen w"); err == nil {
		t.Fatal("Expected search error")
	}
	if len(rec.searchers) != 2 {
		t.Errorf("Expected a fresh engine, got %d", len(rec.searchers))
	}
}

func TestFallbackEngineTerminal(t *testing.T) {
	rec := &spawnRecorder{next: func() *fakeSearcher { return &fakeSearcher{} }}
	params := Params{EnginePath: "pikafish"}

	f := NewFallback(nil, rec.spawn, func() Params { return params }, zap.NewNop())
	for i := 0; i < 2; i++ {
		res, err := f.Analyze(context.Background(), "fen w")
		if err != nil {
			t.Fatalf("Expected no error for a mated position, got %v", err)
		}
		if res != nil {
			t.Errorf("Expected nil result, got %+v", res)
		}
	}
	if len(rec.searchers) != 1 {
		t.Fatalf("Expected one engine start, got %d", len(rec.searchers))
	}
	if rec.searchers[0].closed {
		t.Error("Engine restarted after a terminal position")
	}
}
