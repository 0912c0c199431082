// Package mock provides a mock implementation of the speech.Synthesizer
// interface for testing. It records every call and returns configurable
// results, so tests can assert on dispatch ordering and preemption without a
// running TTS server.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxscreen/voxscreen/pkg/provider/speech"
	"github.com/voxscreen/voxscreen/pkg/types"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Synthesizer)(nil)

// SpeakCall records one invocation of Speak.
type SpeakCall struct {
	Text         string
	SpeakerLabel string
	Gender       types.Gender
	At           time.Time
}

// Synthesizer is a configurable mock speech synthesizer.
//
// Configure the result fields before use, then inspect the recorded calls:
//
//	m := &mock.Synthesizer{Duration: 2 * time.Second}
//	d, err := m.Speak(ctx, "hello", "", types.GenderUnknown)
//	calls := m.Calls()
type Synthesizer struct {
	mu sync.Mutex

	// Duration is returned by every successful Speak call.
	Duration time.Duration

	// Err, when non-nil, is returned by Speak instead of Duration.
	Err error

	speakCalls []SpeakCall
	stopCalls  int
}

// Speak implements speech.Synthesizer. It records the call and returns the
// configured Duration or Err.
func (m *Synthesizer) Speak(ctx context.Context, text, speakerLabel string, gender types.Gender) (time.Duration, error) {
	m.mu.Lock()
	m.speakCalls = append(m.speakCalls, SpeakCall{
		Text:         text,
		SpeakerLabel: speakerLabel,
		Gender:       gender,
		At:           time.Now(),
	})
	err := m.Err
	d := m.Duration
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return d, nil
}

// Stop implements speech.Synthesizer. It records the call and returns
// immediately.
func (m *Synthesizer) Stop() {
	m.mu.Lock()
	m.stopCalls++
	m.mu.Unlock()
}

// Calls returns a copy of all recorded Speak calls in order.
func (m *Synthesizer) Calls() []SpeakCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SpeakCall, len(m.speakCalls))
	copy(out, m.speakCalls)
	return out
}

// StopCalls returns the number of Stop invocations recorded so far.
func (m *Synthesizer) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// Reset clears all recorded calls. The configured result fields are
// unchanged.
func (m *Synthesizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speakCalls = nil
	m.stopCalls = 0
}
