// Package observe provides application-wide observability primitives for
// VoxScreen: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all VoxScreen metrics.
const meterName = "github.com/voxscreen/voxscreen"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// OCRDuration tracks text recognition latency per frame.
	OCRDuration metric.Float64Histogram

	// TranslateDuration tracks translation latency per phrase.
	TranslateDuration metric.Float64Histogram

	// PlaybackDuration tracks estimated speech playback time per phrase.
	PlaybackDuration metric.Float64Histogram

	// --- Counters ---

	// FramesSkipped counts frames suppressed by the change gate.
	FramesSkipped metric.Int64Counter

	// Phrases counts stabilized phrases by outcome. Use with attribute:
	//   attribute.String("outcome", "accepted" | "suppressed")
	Phrases metric.Int64Counter

	// Dispatches counts dispatch outcomes. Use with attribute:
	//   attribute.String("outcome", "completed" | "cancelled" | "interrupted")
	Dispatches metric.Int64Counter

	// TransientErrors counts skipped per-item provider failures. Use with
	// attribute: attribute.String("stage", ...)
	TransientErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveDispatches tracks dispatches currently translating or speaking.
	ActiveDispatches metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for screen-to-speech pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.OCRDuration, err = m.Float64Histogram("voxscreen.ocr.duration",
		metric.WithDescription("Latency of text recognition per frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("voxscreen.translate.duration",
		metric.WithDescription("Latency of translation per phrase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("voxscreen.playback.duration",
		metric.WithDescription("Estimated speech playback time per phrase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesSkipped, err = m.Int64Counter("voxscreen.frames.skipped",
		metric.WithDescription("Frames suppressed by the change gate."),
	); err != nil {
		return nil, err
	}
	if met.Phrases, err = m.Int64Counter("voxscreen.phrases",
		metric.WithDescription("Stabilized phrases by outcome (accepted, suppressed)."),
	); err != nil {
		return nil, err
	}
	if met.Dispatches, err = m.Int64Counter("voxscreen.dispatches",
		metric.WithDescription("Dispatch outcomes (completed, cancelled, interrupted)."),
	); err != nil {
		return nil, err
	}
	if met.TransientErrors, err = m.Int64Counter("voxscreen.transient_errors",
		metric.WithDescription("Skipped per-item provider failures by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveDispatches, err = m.Int64UpDownCounter("voxscreen.active_dispatches",
		metric.WithDescription("Dispatches currently translating or speaking."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxscreen.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordPhrase records a stabilized-phrase counter increment with the given
// outcome ("accepted" or "suppressed").
func (m *Metrics) RecordPhrase(ctx context.Context, outcome string) {
	m.Phrases.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordDispatch records a dispatch-outcome counter increment
// ("completed", "cancelled" or "interrupted").
func (m *Metrics) RecordDispatch(ctx context.Context, outcome string) {
	m.Dispatches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordTransientError records a skipped per-item failure for a stage.
func (m *Metrics) RecordTransientError(ctx context.Context, stage string) {
	m.TransientErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
