package textgate

import (
	"sync"

	"github.com/voxscreen/voxscreen/pkg/textsim"
)

// DefaultDedupThreshold is the minimum similarity to the last dispatched
// phrase at which a candidate is suppressed as a duplicate. It is stricter
// than the stabilizer threshold: two genuinely different subtitles can be
// quite similar, so only near-identical text counts as a repeat.
const DefaultDedupThreshold = 0.95

// Deduplicator suppresses phrases that are near-duplicates of the last
// phrase it accepted. Comparison is case-insensitive: a subtitle that only
// changed capitalization between frames is the same phrase.
//
// Deduplicator is safe for concurrent use.
type Deduplicator struct {
	mu        sync.Mutex
	threshold float64
	last      string
	hasLast   bool
}

// NewDeduplicator creates a Deduplicator with the given similarity
// threshold. Out-of-range thresholds fall back to the default.
func NewDeduplicator(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// Offer proposes a phrase for dispatch. It returns true and records the
// phrase when it differs enough from the last accepted one; it returns
// false, recording nothing, when the phrase is a near-duplicate. The second
// return is the measured similarity to the last accepted phrase (0 when
// nothing has been accepted yet), so callers can report how close the call
// was.
func (d *Deduplicator) Offer(text string) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasLast {
		d.last = text
		d.hasLast = true
		return true, 0
	}

	score := textsim.ScoreFold(d.last, text)
	if score >= d.threshold {
		return false, score
	}
	d.last = text
	return true, score
}

// Last returns the most recently accepted phrase, or "" when nothing has
// been accepted yet.
func (d *Deduplicator) Last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Reset forgets the last accepted phrase, so the next Offer always passes.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = ""
	d.hasLast = false
}
