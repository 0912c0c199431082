package pipeline

import "time"

// EventType identifies what happened in the pipeline.
type EventType string

const (
	// EventFrameSkipped - a captured frame did not pass the change gate.
	EventFrameSkipped EventType = "frame_skipped"

	// EventPhraseAccepted - a stabilized phrase passed deduplication and
	// was handed to the dispatch path.
	EventPhraseAccepted EventType = "phrase_accepted"

	// EventPhraseSuppressed - a stabilized phrase was dropped as a
	// near-duplicate of the last dispatched one.
	EventPhraseSuppressed EventType = "phrase_suppressed"

	// EventDispatchStarted - translation/speech began for a phrase.
	EventDispatchStarted EventType = "dispatch_started"

	// EventDispatchCompleted - a phrase was voiced; Duration holds the
	// estimated playback time.
	EventDispatchCompleted EventType = "dispatch_completed"

	// EventDispatchCancelled - a dispatch was abandoned before speech
	// because a fresher phrase arrived or no usable translation came back.
	EventDispatchCancelled EventType = "dispatch_cancelled"

	// EventDispatchInterrupted - a fresher phrase preempted one that was
	// still being voiced.
	EventDispatchInterrupted EventType = "dispatch_interrupted"

	// EventTransientError - a per-item provider failure that was skipped.
	EventTransientError EventType = "transient_error"
)

// Event is one observable pipeline occurrence. Fields beyond Type and At are
// populated where they apply.
type Event struct {
	Type       EventType     `json:"type"`
	At         time.Time     `json:"at"`
	Text       string        `json:"text,omitempty"`
	Translated string        `json:"translated,omitempty"`
	Speaker    string        `json:"speaker,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Stage      string        `json:"stage,omitempty"`
	Error      string        `json:"error,omitempty"`

	// Similarity is the phrase's measured similarity to the last dispatched
	// one, set on phrase_accepted and phrase_suppressed. It shows how close
	// a suppression call was.
	Similarity float64 `json:"similarity,omitempty"`
}

// Sink receives pipeline events. Publish must not block: sinks that fan out
// to slow consumers buffer or drop internally.
type Sink interface {
	Publish(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Event) {}

// multiSink fans one event out to several sinks.
type multiSink []Sink

// MultiSink combines sinks into one. Nil sinks are skipped.
func MultiSink(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// Publish implements Sink.
func (m multiSink) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}
