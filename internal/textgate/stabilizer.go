// Package textgate filters the raw recognizer output down to phrases worth
// dispatching. Two gates run in sequence: a Stabilizer that waits for the
// on-screen text to stop mutating between frames, and a Deduplicator that
// suppresses re-dispatch of a phrase that was already sent downstream.
//
// Both gates compare text with the shared similarity score, but each carries
// its own threshold: stabilization tolerates more variance (recognition
// jitter) than deduplication does.
package textgate

import (
	"strings"
	"sync"

	"github.com/voxscreen/voxscreen/pkg/textsim"
)

const (
	// DefaultStabilizerWindow is how many consecutive observations must
	// agree before a phrase is considered stable.
	DefaultStabilizerWindow = 3

	// DefaultStabilizerThreshold is the minimum similarity between the
	// newest observation and every other one in the window.
	DefaultStabilizerThreshold = 0.85

	// minPhraseLen is the shortest trimmed text the stabilizer will emit.
	// One-rune fragments are recognition noise, not subtitles.
	minPhraseLen = 2
)

// Stabilizer watches a rolling window of recognized text and reports a
// phrase only once the same (or nearly the same) text has been observed for
// a full window. Subtitles render over several frames; until the text stops
// mutating, any single observation may be a half-drawn or misrecognized
// line.
//
// The window is never cleared: after a phrase is reported the history keeps
// rolling, so a subtitle that lingers on screen keeps reporting stable (the
// Deduplicator downstream decides whether that matters).
//
// Stabilizer is safe for concurrent use.
type Stabilizer struct {
	mu        sync.Mutex
	window    int
	threshold float64
	history   []string
}

// NewStabilizer creates a Stabilizer with the given window size and
// similarity threshold. Non-positive window and out-of-range threshold fall
// back to the defaults.
func NewStabilizer(window int, threshold float64) *Stabilizer {
	if window <= 0 {
		window = DefaultStabilizerWindow
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultStabilizerThreshold
	}
	return &Stabilizer{window: window, threshold: threshold}
}

// Push records one observation and reports whether the window has settled.
// When it has, the returned string is the newest observation, trimmed.
//
// Blank or single-rune observations are discarded before they reach the
// window: a recognizer hiccup between two good reads of the same subtitle
// must not evict the progress made on it.
func (s *Stabilizer) Push(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minPhraseLen {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, trimmed)
	if len(s.history) > s.window {
		s.history = s.history[1:]
	}

	if len(s.history) < s.window {
		return "", false
	}

	for _, prev := range s.history[:len(s.history)-1] {
		if textsim.Score(prev, trimmed) < s.threshold {
			return "", false
		}
	}
	return trimmed, true
}

// Reset clears the observation window.
func (s *Stabilizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
