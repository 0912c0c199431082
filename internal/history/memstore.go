package history

import (
	"context"
	"strings"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// DefaultMemoryLimit caps the in-memory archive when the configuration does
// not specify one.
const DefaultMemoryLimit = 500

// MemStore is an in-memory [Store] backed by a bounded ring buffer. Once the
// limit is reached, appending a new entry evicts the oldest one.
type MemStore struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// NewMemStore creates a MemStore holding at most limit entries. limit <= 0
// falls back to [DefaultMemoryLimit].
func NewMemStore(limit int) *MemStore {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemStore{limit: limit}
}

// Append implements [Store].
func (m *MemStore) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.limit {
		// Shift instead of re-slicing so the backing array does not grow
		// without bound.
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:m.limit]
	}
	return nil
}

// Recent implements [Store].
func (m *MemStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && len(m.entries) > limit {
		start = len(m.entries) - limit
	}
	out := make([]Entry, len(m.entries)-start)
	copy(out, m.entries[start:])
	return out, nil
}

// Search implements [Store]. Matching is a case-insensitive substring match
// over both the source and translated text.
func (m *MemStore) Search(_ context.Context, query string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(query)
	out := []Entry{}
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Text), query) ||
			strings.Contains(strings.ToLower(e.Translated), query) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Close implements [Store]. It is a no-op for the in-memory store.
func (m *MemStore) Close() {}

// Len returns the number of entries currently held.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
