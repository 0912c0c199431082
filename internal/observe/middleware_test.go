package observe

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestMiddleware wires a manual metric reader and an in-memory span
// exporter so tests can assert on what one request emits. The global tracer
// provider is swapped for the duration of the test, so none of these tests
// may run in parallel.
func newTestMiddleware(t *testing.T) (func(http.Handler) http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	return Middleware(m), reader, exp
}

// serve pushes a single request through the middleware-wrapped handler.
func serve(mw func(http.Handler) http.Handler, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw(h).ServeHTTP(rec, req)
	return rec
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestMiddlewareCorrelationID(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	var cid string
	rec := serve(mw, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}, httptest.NewRequest("GET", "/history", nil))

	if len(cid) != 32 {
		t.Errorf("correlation ID = %q, want a 32-char trace ID", cid)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != cid {
		t.Errorf("response X-Correlation-ID = %q, want %q", got, cid)
	}
}

func TestMiddlewareSpanAndStatus(t *testing.T) {
	mw, _, exp := newTestMiddleware(t)

	rec := serve(mw, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, httptest.NewRequest("GET", "/history/search", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("response status = %d, want 404", rec.Code)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "HTTP GET /history/search" {
		t.Errorf("span name = %q", span.Name)
	}
	var gotStatus int64
	for _, a := range span.Attributes {
		if string(a.Key) == "http.response.status_code" {
			gotStatus = a.Value.AsInt64()
		}
	}
	if gotStatus != 404 {
		t.Errorf("span http.response.status_code = %d, want 404", gotStatus)
	}
}

func TestMiddlewareRecordsRequestDuration(t *testing.T) {
	mw, reader, _ := newTestMiddleware(t)

	serve(mw, okHandler, httptest.NewRequest("GET", "/events", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	met := findMetric(rm, "voxscreen.http.request.duration")
	if met == nil {
		t.Fatal("request duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("request duration metric has no histogram data")
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	attrs := map[string]string{}
	for _, kv := range dp.Attributes.ToSlice() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["method"] != "GET" || attrs["path"] != "/events" {
		t.Errorf("attributes = %v, want method=GET path=/events", attrs)
	}
}

func TestMiddlewareQuietsProbeLogging(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	var buf strings.Builder
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(orig) })

	// Probe and scrape endpoints complete at debug, everything else at info.
	serve(mw, okHandler, httptest.NewRequest("GET", "/readyz", nil))
	serve(mw, okHandler, httptest.NewRequest("GET", "/metrics", nil))
	if buf.Len() != 0 {
		t.Errorf("probe requests logged at info: %q", buf.String())
	}

	serve(mw, okHandler, httptest.NewRequest("GET", "/history", nil))
	if !strings.Contains(buf.String(), "request completed") {
		t.Errorf("regular request missing completion log, got %q", buf.String())
	}
}

func TestMiddlewareAdoptsIncomingTraceContext(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	var cid string
	req := httptest.NewRequest("GET", "/history", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := serve(mw, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}, req)

	if cid != traceID {
		t.Errorf("correlation ID = %q, want incoming trace ID %q", cid, traceID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("response X-Correlation-ID = %q, want %q", got, traceID)
	}
}
