package config

import "sync/atomic"

// Store holds the current config as an atomic snapshot. The pipeline reads
// a fresh snapshot every cycle; the watcher swaps in reloaded configs. Reads
// never block and never observe a partially-updated config.
type Store struct {
	ptr atomic.Pointer[Config]
}

// NewStore creates a Store holding cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.ptr.Store(cfg)
	return s
}

// Snapshot returns the current config. Callers must treat it as read-only.
func (s *Store) Snapshot() *Config {
	return s.ptr.Load()
}

// Swap replaces the current config.
func (s *Store) Swap(cfg *Config) {
	s.ptr.Store(cfg)
}
