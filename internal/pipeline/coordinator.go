package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxscreen/voxscreen/internal/textgate"
	"github.com/voxscreen/voxscreen/pkg/capture"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr"
	"github.com/voxscreen/voxscreen/pkg/provider/speech"
	"github.com/voxscreen/voxscreen/pkg/provider/translate"
	"github.com/voxscreen/voxscreen/pkg/types"
)

// DefaultFPS is the capture loop rate when the settings do not specify one.
const DefaultFPS = 30.0

// Settings are the runtime-tunable knobs the coordinator re-reads every
// capture cycle, so a config reload takes effect without a restart.
type Settings struct {
	// Region is the screen area to capture.
	Region capture.Region

	// FPS is the target capture rate. Zero means DefaultFPS.
	FPS float64

	// TranslateEnabled selects between translating phrases and reading
	// them aloud as-is. It is ignored when no translator is configured.
	TranslateEnabled bool
}

// SettingsFunc returns the settings for the next cycle.
type SettingsFunc func() Settings

// ─── options ───

// Option is a functional option for configuring a Coordinator.
type Option func(*Coordinator)

// WithTranslator sets the translation provider. Without one the coordinator
// runs in read-aloud mode and voices the recognized text directly.
func WithTranslator(p translate.Provider) Option {
	return func(c *Coordinator) { c.translator = p }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithSink sets the event sink. Defaults to discarding events.
func WithSink(s Sink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithSettingsFunc makes the coordinator re-read its settings from fn every
// cycle instead of using a fixed snapshot.
func WithSettingsFunc(fn SettingsFunc) Option {
	return func(c *Coordinator) { c.settings = fn }
}

// WithSettings fixes the settings for the lifetime of the coordinator.
func WithSettings(s Settings) Option {
	return func(c *Coordinator) { c.settings = func() Settings { return s } }
}

// WithStabilization overrides the stabilizer window and similarity
// threshold.
func WithStabilization(window int, threshold float64) Option {
	return func(c *Coordinator) { c.stabilizer = textgate.NewStabilizer(window, threshold) }
}

// WithDedupThreshold overrides the deduplication similarity threshold.
func WithDedupThreshold(threshold float64) Option {
	return func(c *Coordinator) { c.dedup = textgate.NewDeduplicator(threshold) }
}

// WithDiffThreshold overrides the change gate's luminance threshold.
func WithDiffThreshold(threshold float64) Option {
	return func(c *Coordinator) { c.gate = NewChangeGate(threshold) }
}

// ─── Coordinator ───

// Coordinator drives the whole pipeline: it polls the frame source, gates
// unchanged frames, recognizes text, waits for it to stabilize and hands it
// to a dispatch path that drops near-duplicates of the last dispatched
// phrase, translates the rest and voices them.
//
// The two paths are decoupled by a single-slot Latest queue, so a slow
// translation never backs up capture: intermediate phrases are simply
// overwritten and only the freshest one is voiced. A phrase arriving while
// a previous one is still being translated or spoken preempts it.
type Coordinator struct {
	source     capture.Source
	recognizer ocr.Provider
	translator translate.Provider
	speaker    speech.Synthesizer

	gate       *ChangeGate
	stabilizer *textgate.Stabilizer
	dedup      *textgate.Deduplicator
	queue      *Latest[string]

	settings SettingsFunc
	log      *slog.Logger
	sink     Sink

	mu         sync.Mutex
	gen        uint64
	speakUntil time.Time
	voicing    bool

	dispatches sync.WaitGroup
}

// New creates a Coordinator. source, recognizer and speaker are required;
// a missing one is a construction error, not something to discover on the
// first frame.
func New(source capture.Source, recognizer ocr.Provider, speaker speech.Synthesizer, opts ...Option) (*Coordinator, error) {
	if source == nil {
		return nil, errors.New("pipeline: frame source must not be nil")
	}
	if recognizer == nil {
		return nil, errors.New("pipeline: recognizer must not be nil")
	}
	if speaker == nil {
		return nil, errors.New("pipeline: speaker must not be nil")
	}

	c := &Coordinator{
		source:     source,
		recognizer: recognizer,
		speaker:    speaker,
		gate:       NewChangeGate(DefaultDiffThreshold),
		stabilizer: textgate.NewStabilizer(textgate.DefaultStabilizerWindow, textgate.DefaultStabilizerThreshold),
		dedup:      textgate.NewDeduplicator(textgate.DefaultDedupThreshold),
		queue:      NewLatest[string](),
		settings:   func() Settings { return Settings{TranslateEnabled: true} },
		log:        slog.Default(),
		sink:       NopSink{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Run executes the capture and dispatch paths until ctx is cancelled. A
// cancelled context is a clean shutdown and returns nil.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.captureLoop(ctx) })
	g.Go(func() error { return c.dispatchLoop(ctx) })

	err := g.Wait()
	c.dispatches.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ─── capture path ───

// captureLoop polls the source at the configured rate and pushes stabilized
// phrases into the handoff queue.
func (c *Coordinator) captureLoop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		st := c.settings()
		c.captureCycle(ctx, st)

		fps := st.FPS
		if fps <= 0 {
			fps = DefaultFPS
		}
		timer.Reset(time.Duration(float64(time.Second) / fps))
	}
}

// captureCycle runs one capture-to-queue pass. Provider failures are
// transient: the cycle is skipped and the loop keeps running.
func (c *Coordinator) captureCycle(ctx context.Context, st Settings) {
	frame, err := c.source.Capture(ctx, st.Region)
	if err != nil {
		if ctx.Err() == nil {
			c.transient("capture", err)
		}
		return
	}
	if frame == nil {
		return
	}

	if !c.gate.Changed(frame) {
		c.publish(Event{Type: EventFrameSkipped})
		return
	}

	text, err := c.recognizer.Recognize(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			c.transient("recognize", err)
		}
		return
	}

	stable, ok := c.stabilizer.Push(text)
	if !ok {
		return
	}
	c.queue.Put(stable)
}

// ─── dispatch path ───

// dispatchLoop takes phrases off the queue, drops near-duplicates of the
// last phrase it dispatched, preempts whatever the pipeline was doing with
// the previous one, and dispatches each in its own goroutine so the loop is
// immediately ready for a fresher phrase.
//
// Deduplication runs here rather than on the capture path: phrases that were
// overwritten in the queue before anyone dispatched them must not become the
// comparison anchor.
func (c *Coordinator) dispatchLoop(ctx context.Context) error {
	for {
		phrase, err := c.queue.Get(ctx)
		if err != nil {
			return err
		}

		ok, score := c.dedup.Offer(phrase)
		if !ok {
			c.publish(Event{Type: EventPhraseSuppressed, Text: phrase, Similarity: score})
			continue
		}
		c.publish(Event{Type: EventPhraseAccepted, Text: phrase, Similarity: score})
		c.log.Debug("phrase accepted", "text", phrase, "similarity", score)

		st := c.settings()
		gen := c.preempt()

		c.dispatches.Add(1)
		go func() {
			defer c.dispatches.Done()
			c.dispatch(ctx, gen, st, phrase)
		}()
	}
}

// preempt advances the dispatch generation and halts in-flight work. The
// Cancel and Stop calls are fire-and-forget and always happen before the
// new phrase is dispatched; stale results are additionally discarded by the
// generation check in dispatch.
func (c *Coordinator) preempt() uint64 {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	interrupted := c.voicing && time.Now().Before(c.speakUntil)
	c.voicing = false
	c.mu.Unlock()

	if c.translator != nil {
		c.translator.Cancel()
	}
	c.speaker.Stop()

	if interrupted {
		c.publish(Event{Type: EventDispatchInterrupted})
	}
	return gen
}

// current reports whether gen is still the newest dispatch generation.
func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// dispatch translates (or passes through) one phrase and voices it. It
// abandons the phrase without error when a fresher one preempts it.
func (c *Coordinator) dispatch(ctx context.Context, gen uint64, st Settings, phrase string) {
	c.publish(Event{Type: EventDispatchStarted, Text: phrase})

	out := phrase
	label := ""
	gender := types.GenderUnknown

	if st.TranslateEnabled && c.translator != nil {
		res, err := c.translator.Translate(ctx, phrase)
		switch {
		case errors.Is(err, translate.ErrCancelled) || (err != nil && ctx.Err() != nil):
			c.publish(Event{Type: EventDispatchCancelled, Text: phrase, Stage: "translate"})
			return
		case err != nil:
			c.transient("translate", err)
			c.publish(Event{Type: EventDispatchCancelled, Text: phrase, Stage: "translate", Error: err.Error()})
			return
		case res == nil:
			// No usable translation for this phrase.
			c.publish(Event{Type: EventDispatchCancelled, Text: phrase, Stage: "translate"})
			return
		}
		out = res.Text
		label = res.SpeakerLabel
		gender = res.VoiceGender
	}

	if !c.current(gen) {
		// A fresher phrase arrived while translating; this result is stale.
		c.publish(Event{Type: EventDispatchCancelled, Text: phrase, Stage: "stale"})
		return
	}

	d, err := c.speaker.Speak(ctx, out, label, gender)
	if err != nil {
		if ctx.Err() == nil {
			c.transient("speak", err)
		}
		c.publish(Event{Type: EventDispatchCancelled, Text: phrase, Stage: "speak"})
		return
	}

	c.mu.Lock()
	if gen == c.gen {
		c.voicing = true
		c.speakUntil = time.Now().Add(d)
	}
	c.mu.Unlock()

	c.publish(Event{
		Type:       EventDispatchCompleted,
		Text:       phrase,
		Translated: out,
		Speaker:    label,
		Duration:   d,
	})
	c.log.Info("phrase voiced", "text", phrase, "translated", out, "speaker", label, "duration", d)
}

// ─── helpers ───

// transient logs and reports a per-item provider failure. The item is
// skipped; the pipeline never stops for these.
func (c *Coordinator) transient(stage string, err error) {
	c.log.Warn("transient pipeline error", "stage", stage, "error", err)
	c.publish(Event{Type: EventTransientError, Stage: stage, Error: err.Error()})
}

// publish stamps and emits an event.
func (c *Coordinator) publish(e Event) {
	e.At = time.Now()
	c.sink.Publish(e)
}
