package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultReadyTimeout = 10 * time.Second

// Options are the engine options applied once at startup
type Options struct {
	Threads  int
	HashMB   int
	EvalFile string
	ShowWDL  bool
}

// Limits bound a single search
type Limits struct {
	Depth          int
	MoveTimeMillis int
}

// Session is a running UCI engine process such as pikafish
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	search sync.Mutex
}

// NewSession starts the engine binary and completes the uci/isready
// handshake. ctx only bounds the handshake; the process lives until Close.
func NewSession(ctx context.Context, binaryPath string, args []string, opt Options) (*Session, error) {
	cmd := exec.Command(binaryPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Search analyses fen and returns the last complete info line before
// bestmove. A position without legal moves gives a nil result and nil error.
func (s *Session) Search(ctx context.Context, fen string, l Limits) (*Result, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if err := s.send("position fen " + fen + "\n"); err != nil {
		return nil, fmt.Errorf("send position: %w", err)
	}
	goCmd, err := buildGoCommand(l)
	if err != nil {
		return nil, err
	}
	if err := s.send(goCmd + "\n"); err != nil {
		return nil, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(l))
	defer cancel()

	var last *Result
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			return nil, fmt.Errorf("read line: %w", err)
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if res, ok := parseInfo(line); ok {
				last = res
			}
		case strings.HasPrefix(line, "bestmove"):
			fields := strings.Fields(line)
			// no legal move: mated or stalemated
			if len(fields) < 2 || fields[1] == "(none)" {
				return nil, nil
			}
			if last == nil {
				last = &Result{PVs: []string{fields[1]}, Source: SourceEngine}
			}
			return last, nil
		}
	}
}

func buildGoCommand(l Limits) (string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if len(args) == 1 {
		return "", fmt.Errorf("no search limits specified")
	}
	return strings.Join(args, " "), nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		return time.Duration(l.MoveTimeMillis)*time.Millisecond*3 + 2*time.Second
	}
	base := time.Duration(l.Depth) * 500 * time.Millisecond
	if base < 6*time.Second {
		base = 6 * time.Second
	}
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	return base
}

// parseInfo reads depth, time, score and pv from an info line. Lines without
// a pv are ignored.
func parseInfo(line string) (*Result, bool) {
	parts := strings.Fields(line)
	res := &Result{Source: SourceEngine}
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				res.Depth, _ = strconv.Atoi(parts[i+1])
				i++
			}
		case "time":
			if i+1 < len(parts) {
				res.Time, _ = strconv.Atoi(parts[i+1])
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						res.Score = v
					case "mate":
						res.Score = mateScore(v)
					}
				}
				i += 2
			}
		case "pv":
			res.PVs = append([]string(nil), parts[i+1:]...)
			i = len(parts)
		}
	}
	if len(res.PVs) == 0 {
		return nil, false
	}
	return res, true
}

// mateScore maps "mate n" onto the centipawn scale
func mateScore(n int) int {
	if n > 0 {
		return MateScore - n
	}
	return -(MateScore + n)
}

// Close stops the engine process
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	for _, cmd := range optionCommands(opt) {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func optionCommands(opt Options) []string {
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threads),
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	if opt.EvalFile != "" {
		cmds = append(cmds, fmt.Sprintf("setoption name EvalFile value %s\n", opt.EvalFile))
	}
	cmds = append(cmds,
		"setoption name Sixty Move Rule value false\n",
		fmt.Sprintf("setoption name UCI_ShowWDL value %t\n", opt.ShowWDL),
	)
	return cmds
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
