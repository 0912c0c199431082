// Package history archives phrases that made it through the full pipeline.
//
// Two implementations are provided: an in-memory ring buffer ([MemStore]) used
// by default, and a PostgreSQL-backed store ([PostgresStore]) for installations
// that want the archive to survive restarts. Both are safe for concurrent use.
package history

import (
	"context"
	"time"
)

// Entry is a single archived phrase: the recognized source text plus whatever
// the dispatch produced for it.
type Entry struct {
	// Text is the stabilized on-screen text as recognized.
	Text string `json:"text"`
	// Translated is the translated text, empty in read-aloud mode.
	Translated string `json:"translated,omitempty"`
	// Speaker is the detected speaker label, if any.
	Speaker string `json:"speaker,omitempty"`
	// SpokenAt is when playback of the phrase started.
	SpokenAt time.Time `json:"spoken_at"`
	// Duration is the estimated playback duration.
	Duration time.Duration `json:"duration"`
}

// Store is the phrase archive.
type Store interface {
	// Append records entry. Entries are expected to arrive roughly in
	// chronological order.
	Append(ctx context.Context, entry Entry) error

	// Recent returns up to limit of the most recently appended entries in
	// chronological order (oldest first). limit <= 0 means no limit.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Search returns entries whose source or translated text matches query,
	// in chronological order. limit <= 0 means no limit.
	Search(ctx context.Context, query string, limit int) ([]Entry, error)

	// Close releases any resources held by the store.
	Close()
}
