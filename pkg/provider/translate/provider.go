// Package translate defines the Provider interface for machine translation
// backends.
//
// A translation call may take hundreds of milliseconds, which is forever in a
// pipeline that wants to preempt stale work. Providers therefore expose an
// advisory [Provider.Cancel] alongside the blocking Translate: cancellation
// is cooperative, checked at the provider's own internal checkpoints (per
// generation step for streaming backends), and a cancelled call returns
// [ErrCancelled] promptly rather than a result.
//
// Implementations must be safe for concurrent use: a preempted dispatch may
// still be winding down while a newer one starts its own Translate, so two
// calls can briefly overlap on the same provider.
package translate

import (
	"context"
	"errors"

	"github.com/voxscreen/voxscreen/pkg/types"
)

// ErrCancelled is returned by Translate when the call was interrupted by
// [Provider.Cancel] (or an equivalent context cancellation) rather than
// failing. Callers must treat it as "work abandoned", never as an error to
// report or retry.
var ErrCancelled = errors.New("translate: cancelled")

// Result is a successful translation.
type Result struct {
	// Text is the translated phrase.
	Text string

	// SpeakerLabel is the name of the character the source phrase is
	// attributed to, when the backend can tell. Empty for unattributed text.
	SpeakerLabel string

	// VoiceGender hints which synthesizer voice suits the speaker.
	VoiceGender types.Gender
}

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate converts text to the configured target language.
	//
	// A (nil, nil) return means the backend produced no usable translation
	// for this input (empty output, an untranslated echo of the source, or
	// otherwise invalid) — a transient per-item outcome the pipeline skips
	// without retrying. A cancelled call returns [ErrCancelled]; any other
	// non-nil error is a backend failure.
	Translate(ctx context.Context, text string) (*Result, error)

	// Cancel requests that any in-flight Translate abort at its next
	// checkpoint. It is advisory, non-blocking, and safe to call at any
	// time, including when no call is in flight (no-op).
	Cancel()
}
