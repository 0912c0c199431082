package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// failWarnThreshold is the number of consecutive reload failures after which
// the watcher escalates from warn to error logging. A user mid-edit saves
// broken YAML all the time; a file that stays broken is worth noticing.
const failWarnThreshold = 3

// fileState identifies one observed version of the config file.
type fileState struct {
	mtime time.Time
	hash  [sha256.Size]byte
}

// Watcher monitors a config file for changes and calls a callback when the
// file is modified. It polls rather than using fsnotify: the file changes at
// human editing speed and polling works on every filesystem.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config, diff ConfigDiff)

	mu       sync.Mutex
	current  *Config
	last     fileState
	failures int
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a config file watcher. It loads the initial config
// immediately and starts polling in a background goroutine. onChange is
// invoked with both configs and their [Diff] whenever the file changes to a
// different, valid configuration; invalid edits are logged and the previous
// config stays current.
func NewWatcher(path string, onChange func(old, new *Config, diff ConfigDiff), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.last = state

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking the config file periodically.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reads the config file and, if it changed to a different valid
// configuration, updates the current config and calls onChange.
func (w *Watcher) check() {
	// Mtime check first so unchanged files are not re-read and hashed.
	info, err := os.Stat(w.path)
	if err != nil {
		w.reportFailure("cannot stat config file", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.last.mtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, state, err := w.load()
	if err != nil {
		w.reportFailure("config reload failed, keeping previous", err)
		return
	}

	w.mu.Lock()
	w.failures = 0
	if state.hash == w.last.hash {
		// Touched but identical content.
		w.last.mtime = state.mtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.last = state
	w.mu.Unlock()

	diff := Diff(old, cfg)
	if !diff.Changed() {
		// Reformatted or reordered YAML, same effective settings.
		return
	}

	slog.Info("configuration reloaded",
		"path", w.path,
		"requires_restart", diff.RequiresRestart,
	)

	// Invoke the callback outside the lock so it can safely call Current().
	if w.onChange != nil {
		w.onChange(old, cfg, diff)
	}
}

// reportFailure logs a reload problem, escalating to error level once the
// file has been broken for several polls in a row.
func (w *Watcher) reportFailure(msg string, err error) {
	w.mu.Lock()
	w.failures++
	n := w.failures
	w.mu.Unlock()

	level := slog.LevelWarn
	if n >= failWarnThreshold {
		level = slog.LevelError
	}
	slog.Default().Log(context.Background(), level, msg, "path", w.path, "err", err, "consecutive_failures", n)
}

// load reads, parses and validates the config file, returning the config
// alongside the file state used for change detection.
func (w *Watcher) load() (*Config, fileState, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}

	return cfg, fileState{mtime: info.ModTime(), hash: sha256.Sum256(data)}, nil
}
