// Package speech defines the provider interface for voicing translated
// phrases out loud.
package speech

import (
	"context"
	"time"

	"github.com/voxscreen/voxscreen/pkg/types"
)

// Synthesizer converts a phrase into audible speech.
//
// Speak starts playback of text and returns the estimated playback duration
// without waiting for the audio to finish. speakerLabel is an optional
// character name the phrase is attributed to; gender is an optional voice
// hint. Implementations pick a voice from both and fall back to a default
// voice when they are empty.
//
// The returned duration is an estimate for scheduling purposes only. A
// duration of 0 with a nil error means the phrase produced no audio.
//
// Stop halts any playback currently in progress. It is fire-and-forget:
// it must return promptly without waiting for the audio device to go
// quiet, and it is a no-op when nothing is playing.
type Synthesizer interface {
	Speak(ctx context.Context, text, speakerLabel string, gender types.Gender) (time.Duration, error)
	Stop()
}
