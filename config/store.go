package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 250 * time.Millisecond

// Store holds the live configuration snapshot
// Readers call Get per operation; a reload swaps the whole snapshot
type Store struct {
	path string
	cur  atomic.Pointer[Config]
	log  zerolog.Logger

	mu        sync.Mutex
	listeners []func(*Config)
}

// NewStore wraps an already loaded config; cfg nil uses the defaults
func NewStore(path string, cfg *Config, logger zerolog.Logger) *Store {
	if cfg == nil {
		cfg = Default()
	}
	s := &Store{path: path, log: logger.With().Str("component", "config").Logger()}
	s.cur.Store(cfg)
	return s
}

func (s *Store) Get() *Config { return s.cur.Load() }

func (s *Store) Path() string { return s.path }

// Set replaces the snapshot and notifies listeners
func (s *Store) Set(cfg *Config) {
	s.cur.Store(cfg)
	s.mu.Lock()
	listeners := append([]func(*Config){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnReload registers fn to run after every successful reload
func (s *Store) OnReload(fn func(*Config)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Reload re-reads the file; on error the previous snapshot stays live
func (s *Store) Reload() ([]string, error) {
	cfg, warnings, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.log.Warn().Msg(w)
	}
	s.Set(cfg)
	s.log.Info().Str("path", s.path).Msg("configuration reloaded")
	return warnings, nil
}

// Watch reloads on writes to the config file until ctx ends
// The parent directory is watched so editors that replace the file are seen
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				if _, err := s.Reload(); err != nil {
					s.log.Error().Err(err).Msg("configuration reload failed, keeping previous")
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
