// Package app wires all VoxScreen subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the capture pipeline and the HTTP server, and
// Shutdown tears everything down in order.
//
// For testing, inject mock providers via the Providers struct and functional
// options (WithHistoryStore, WithLogger, etc.). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxscreen/voxscreen/internal/config"
	"github.com/voxscreen/voxscreen/internal/eventstream"
	"github.com/voxscreen/voxscreen/internal/health"
	"github.com/voxscreen/voxscreen/internal/history"
	"github.com/voxscreen/voxscreen/internal/observe"
	"github.com/voxscreen/voxscreen/internal/pipeline"
	"github.com/voxscreen/voxscreen/pkg/capture"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr"
	"github.com/voxscreen/voxscreen/pkg/provider/speech"
	"github.com/voxscreen/voxscreen/pkg/provider/translate"
)

// httpShutdownTimeout bounds the graceful drain of in-flight HTTP requests.
const httpShutdownTimeout = 5 * time.Second

// Providers holds one interface value per pipeline stage. Source, Recognizer
// and Speaker are required; Translator may be nil when translation is
// disabled. Populated by main.go via the config registry.
type Providers struct {
	Source     capture.Source
	Recognizer ocr.Provider
	Translator translate.Provider
	Speaker    speech.Synthesizer
}

// App owns all subsystem lifetimes and orchestrates the subtitle voicing pipeline.
type App struct {
	cfg       *config.Store
	providers *Providers
	log       *slog.Logger

	// Subsystems — initialised in New, torn down in Shutdown.
	store       history.Store
	recorder    *history.Recorder
	hub         *eventstream.Hub
	metrics     *observe.Metrics
	coordinator *pipeline.Coordinator

	// running reports whether the capture loop is active; feeds /readyz.
	running atomic.Bool

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects a phrase archive instead of creating one from config.
func WithHistoryStore(s history.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithMetrics injects a metrics bundle instead of using [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: provider validation, history
// store connection, event hub creation, and pipeline assembly. Any failure
// here is fatal; transient runtime errors are handled inside Run.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, errors.New("app: providers must not be nil")
	}

	a := &App{
		cfg:       config.NewStore(cfg),
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Required stages ───────────────────────────────────────────────
	if providers.Source == nil {
		return nil, errors.New("app: capture source is required")
	}
	if providers.Recognizer == nil {
		return nil, errors.New("app: ocr provider is required")
	}
	if providers.Speaker == nil {
		return nil, errors.New("app: speech provider is required")
	}
	if cfg.Pipeline.TranslateEnabled() && providers.Translator == nil {
		return nil, errors.New("app: translation is enabled but no translate provider was built")
	}

	// ── 2. History store ─────────────────────────────────────────────────
	if err := a.initHistory(ctx, cfg); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	// ── 3. Event fan-out ─────────────────────────────────────────────────
	a.hub = eventstream.NewHub(a.log)
	a.closers = append(a.closers, func() error {
		a.hub.Close()
		return nil
	})
	a.recorder = history.NewRecorder(a.store, a.log)

	// ── 4. Pipeline ──────────────────────────────────────────────────────
	if err := a.initPipeline(cfg); err != nil {
		return nil, fmt.Errorf("app: init pipeline: %w", err)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initHistory connects the durable archive or falls back to memory.
func (a *App) initHistory(ctx context.Context, cfg *config.Config) error {
	if a.store != nil {
		return nil // injected
	}

	if dsn := cfg.History.PostgresDSN; dsn != "" {
		store, err := history.NewPostgresStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.store = store
	} else {
		a.store = history.NewMemStore(cfg.History.MemoryLimit)
	}

	a.closers = append(a.closers, func() error {
		a.store.Close()
		return nil
	})
	return nil
}

// initPipeline assembles the coordinator from the configured providers.
func (a *App) initPipeline(cfg *config.Config) error {
	sink := pipeline.MultiSink(
		observe.NewMetricsSink(a.metrics),
		a.hub,
		a.recorder,
	)

	opts := []pipeline.Option{
		pipeline.WithLogger(a.log),
		pipeline.WithSink(sink),
		pipeline.WithSettingsFunc(a.settings),
		pipeline.WithStabilization(cfg.Pipeline.StabilizerWindow, cfg.Pipeline.StabilizerThreshold),
		pipeline.WithDedupThreshold(cfg.Pipeline.DedupThreshold),
		pipeline.WithDiffThreshold(cfg.Capture.DiffThreshold),
	}
	if a.providers.Translator != nil {
		opts = append(opts, pipeline.WithTranslator(a.providers.Translator))
	}

	coord, err := pipeline.New(a.providers.Source, a.providers.Recognizer, a.providers.Speaker, opts...)
	if err != nil {
		return err
	}
	a.coordinator = coord
	return nil
}

// settings snapshots the live-reloadable knobs for the next capture cycle.
func (a *App) settings() pipeline.Settings {
	cfg := a.cfg.Snapshot()
	return pipeline.Settings{
		Region:           cfg.Capture.Region,
		FPS:              cfg.Capture.FPS,
		TranslateEnabled: cfg.Pipeline.TranslateEnabled() && a.providers.Translator != nil,
	}
}

// ApplyConfig installs a reloaded configuration. Capture region, rate and the
// translate toggle take effect on the next cycle; changes flagged as
// requiring a restart are logged and deferred.
func (a *App) ApplyConfig(cfg *config.Config, diff config.ConfigDiff) {
	a.cfg.Swap(cfg)
	if diff.RequiresRestart {
		a.log.Warn("config change requires a restart to take full effect")
	}
	if diff.CaptureChanged || diff.TranslateToggled {
		a.log.Info("applied live config change",
			"capture_changed", diff.CaptureChanged,
			"translate_toggled", diff.TranslateToggled,
		)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the capture pipeline and the HTTP server and blocks until ctx is
// cancelled or a component fails fatally. A clean cancellation returns nil.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	a.running.Store(true)
	defer a.running.Store(false)

	g.Go(func() error {
		defer a.running.Store(false)
		return a.coordinator.Run(ctx)
	})

	if addr := a.cfg.Snapshot().Server.ListenAddr; addr != "" {
		server := &http.Server{
			Addr:              addr,
			Handler:           a.buildHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			tls := a.cfg.Snapshot().Server.TLS
			a.log.Info("http server listening", "addr", addr, "tls", tls != nil)

			var err error
			if tls != nil {
				err = server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
			} else {
				err = server.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()

	// Let in-flight archive writes land before reporting completion.
	a.recorder.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildHandler assembles the HTTP mux: health probes, Prometheus metrics, the
// live event stream, and the phrase history API.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()

	health.New(
		health.PipelineChecker(a.running.Load),
		health.HistoryChecker(a.store),
	).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /events", a.hub)
	history.NewHandler(a.store, a.log).Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		// Stop any audio that is still playing.
		a.providers.Speaker.Stop()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
