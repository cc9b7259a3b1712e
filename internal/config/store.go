package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce collapses the burst of events an editor save produces
const reloadDebounce = 100 * time.Millisecond

// Store holds the live configuration. Readers get copies.
type Store struct {
	path   string
	logger *zap.Logger

	mu  sync.RWMutex
	cfg Config
}

// NewStore wraps cfg, persisting updates to path. An empty path keeps the
// configuration in memory only.
func NewStore(path string, cfg *Config, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		cfg:    *cfg,
	}
}

// Get returns a snapshot of the current configuration
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to a copy, validates it, saves it and makes it current.
// On any error the current configuration is left unchanged.
func (s *Store) Update(fn func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.cfg, err
	}
	if s.path != "" {
		if err := next.Save(s.path); err != nil {
			return s.cfg, fmt.Errorf("failed to save config: %w", err)
		}
	}
	s.cfg = next
	return next, nil
}

// Reload re-reads the file. An invalid file is rejected and the current
// configuration kept.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = *cfg
	s.mu.Unlock()
	return nil
}

// Watch reloads the configuration whenever the file changes on disk. It
// blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch the directory
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDebounce)
			pending = timer.C

		case <-pending:
			pending = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("Config reload rejected", zap.String("path", s.path), zap.Error(err))
				continue
			}
			s.logger.Info("Config reloaded", zap.String("path", s.path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}
