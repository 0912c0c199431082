package observe

import (
	"context"

	"github.com/voxscreen/voxscreen/internal/pipeline"
)

// Compile-time interface assertion.
var _ pipeline.Sink = (*MetricsSink)(nil)

// MetricsSink adapts pipeline events onto the OTel instruments in [Metrics],
// so the pipeline core stays free of metrics plumbing. Publish is cheap and
// non-blocking: OTel instruments buffer internally.
type MetricsSink struct {
	metrics *Metrics
}

// NewMetricsSink creates a sink recording into m. A nil m uses
// [DefaultMetrics].
func NewMetricsSink(m *Metrics) *MetricsSink {
	if m == nil {
		m = DefaultMetrics()
	}
	return &MetricsSink{metrics: m}
}

// Publish implements pipeline.Sink.
func (s *MetricsSink) Publish(e pipeline.Event) {
	ctx := context.Background()
	switch e.Type {
	case pipeline.EventFrameSkipped:
		s.metrics.FramesSkipped.Add(ctx, 1)
	case pipeline.EventPhraseAccepted:
		s.metrics.RecordPhrase(ctx, "accepted")
	case pipeline.EventPhraseSuppressed:
		s.metrics.RecordPhrase(ctx, "suppressed")
	case pipeline.EventDispatchStarted:
		s.metrics.ActiveDispatches.Add(ctx, 1)
	case pipeline.EventDispatchCompleted:
		s.metrics.ActiveDispatches.Add(ctx, -1)
		s.metrics.RecordDispatch(ctx, "completed")
		s.metrics.PlaybackDuration.Record(ctx, e.Duration.Seconds())
	case pipeline.EventDispatchCancelled:
		s.metrics.ActiveDispatches.Add(ctx, -1)
		s.metrics.RecordDispatch(ctx, "cancelled")
	case pipeline.EventDispatchInterrupted:
		s.metrics.RecordDispatch(ctx, "interrupted")
	case pipeline.EventTransientError:
		s.metrics.RecordTransientError(ctx, e.Stage)
	}
}
