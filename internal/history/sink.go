package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxscreen/voxscreen/internal/pipeline"
)

// Compile-time interface check.
var _ pipeline.Sink = (*Recorder)(nil)

// appendTimeout bounds how long a single archive write may take.
const appendTimeout = 5 * time.Second

// Recorder is a [pipeline.Sink] that archives every completed dispatch into a
// [Store]. Writes happen on a background goroutine so a slow store never
// stalls the pipeline; write errors are logged and dropped.
type Recorder struct {
	store Store
	log   *slog.Logger
	wg    sync.WaitGroup
}

// NewRecorder creates a Recorder archiving into store. A nil logger falls
// back to [slog.Default].
func NewRecorder(store Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: store, log: log}
}

// Publish implements [pipeline.Sink].
func (r *Recorder) Publish(e pipeline.Event) {
	if e.Type != pipeline.EventDispatchCompleted {
		return
	}

	entry := Entry{
		Text:       e.Text,
		Translated: e.Translated,
		Speaker:    e.Speaker,
		SpokenAt:   e.At,
		Duration:   e.Duration,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()
		if err := r.store.Append(ctx, entry); err != nil {
			r.log.Warn("failed to archive phrase", "error", err, "text", entry.Text)
		}
	}()
}

// Wait blocks until all in-flight archive writes have finished. Intended for
// shutdown and tests.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
