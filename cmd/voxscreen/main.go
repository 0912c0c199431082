// Command voxscreen is the main entry point for the VoxScreen subtitle
// voicing server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/voxscreen/voxscreen/internal/app"
	"github.com/voxscreen/voxscreen/internal/config"
	"github.com/voxscreen/voxscreen/internal/observe"
	"github.com/voxscreen/voxscreen/internal/resilience"
	"github.com/voxscreen/voxscreen/pkg/capture"
	"github.com/voxscreen/voxscreen/pkg/capture/replay"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr/tesseract"
	"github.com/voxscreen/voxscreen/pkg/provider/speech"
	"github.com/voxscreen/voxscreen/pkg/provider/speech/coqui"
	"github.com/voxscreen/voxscreen/pkg/provider/translate"
	translateanyllm "github.com/voxscreen/voxscreen/pkg/provider/translate/anyllm"
	translateopenai "github.com/voxscreen/voxscreen/pkg/provider/translate/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watchConfig := flag.Bool("watch-config", true, "reload the configuration when the file changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxscreen: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxscreen: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("voxscreen starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "voxscreen",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	if *watchConfig {
		watcher, err := config.NewWatcher(*configPath, func(_, newCfg *config.Config, diff config.ConfigDiff) {
			if diff.LogLevelChanged {
				level.Set(slogLevel(diff.NewLogLevel))
			}
			application.ApplyConfig(newCfg, diff)
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmBackends lists the translation backends served through the any-llm
// library. "openai" is deliberately absent: it gets the dedicated streaming
// client below.
var anyllmBackends = []string{
	"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Capture ───────────────────────────────────────────────────────────────

	reg.RegisterCapture("replay", func(entry config.ProviderEntry) (capture.Source, error) {
		dir := entry.StringOption("dir", "")
		if dir == "" {
			return nil, errors.New("replay capture requires options.dir")
		}
		var opts []replay.Option
		if entry.StringOption("loop", "") == "true" {
			opts = append(opts, replay.WithLoop())
		}
		return replay.New(dir, opts...)
	})

	// ── OCR ───────────────────────────────────────────────────────────────────

	reg.RegisterOCR("tesseract", func(entry config.ProviderEntry) (ocr.Provider, error) {
		var opts []tesseract.Option
		if bin := entry.StringOption("binary", ""); bin != "" {
			opts = append(opts, tesseract.WithBinary(bin))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, tesseract.WithLanguage(lang))
		}
		return tesseract.New(opts...)
	})

	// ── Translate ─────────────────────────────────────────────────────────────

	reg.RegisterTranslate("openai", func(entry config.ProviderEntry, sourceLang, targetLang string) (translate.Provider, error) {
		var opts []translateopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, translateopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.StringOption("detect_speakers", "") == "true" {
			opts = append(opts, translateopenai.WithSpeakerDetection())
		}
		return translateopenai.New(entry.APIKey, entry.Model, sourceLang, targetLang, opts...)
	})

	for _, backendName := range anyllmBackends {
		reg.RegisterTranslate(backendName, func(entry config.ProviderEntry, sourceLang, targetLang string) (translate.Provider, error) {
			var backendOpts []anyllmlib.Option
			if entry.APIKey != "" {
				backendOpts = append(backendOpts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return translateanyllm.New(backendName, entry.Model, sourceLang, targetLang,
				translateanyllm.WithBackendOptions(backendOpts...))
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterTranslate("ollama", func(entry config.ProviderEntry, sourceLang, targetLang string) (translate.Provider, error) {
		var backendOpts []anyllmlib.Option
		if entry.BaseURL != "" {
			backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return translateanyllm.New("ollama", entry.Model, sourceLang, targetLang,
			translateanyllm.WithBackendOptions(backendOpts...))
	})

	// ── Speech ────────────────────────────────────────────────────────────────

	reg.RegisterSpeech("coqui", func(entry config.ProviderEntry) (speech.Synthesizer, error) {
		var opts []coqui.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if v := entry.StringOption("voice", ""); v != "" {
			opts = append(opts, coqui.WithDefaultVoice(v))
		}
		if v := entry.StringOption("male_voice", ""); v != "" {
			opts = append(opts, coqui.WithMaleVoice(v))
		}
		if v := entry.StringOption("female_voice", ""); v != "" {
			opts = append(opts, coqui.WithFemaleVoice(v))
		}
		if bin := entry.StringOption("player", ""); bin != "" {
			opts = append(opts, coqui.WithPlayer(bin))
		}
		return coqui.New(entry.BaseURL, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	name := cfg.Providers.Capture.Name
	if name == "" {
		return nil, errors.New("providers.capture is required (built-in: replay)")
	}
	source, err := reg.CreateCapture(cfg.Providers.Capture)
	if err != nil {
		return nil, fmt.Errorf("create capture source %q: %w", name, err)
	}
	ps.Source = source
	slog.Info("provider created", "kind", "capture", "name", name)

	recognizer, err := reg.CreateOCR(cfg.Providers.OCR)
	if err != nil {
		return nil, fmt.Errorf("create ocr provider %q: %w", cfg.Providers.OCR.Name, err)
	}
	ps.Recognizer = recognizer
	slog.Info("provider created", "kind", "ocr", "name", cfg.Providers.OCR.Name)

	if name := cfg.Providers.Translate.Name; name != "" {
		p, err := reg.CreateTranslate(cfg.Providers.Translate, cfg.Pipeline.SourceLang, cfg.Pipeline.TargetLang)
		if err != nil {
			return nil, fmt.Errorf("create translate provider %q: %w", name, err)
		}

		// The breaker keeps a flapping backend from stalling every dispatch;
		// an optional second provider takes over while it is open.
		wrapped := resilience.NewTranslateFallback(p, name, resilience.FallbackConfig{})
		if fbName := cfg.Providers.Translate.StringOption("fallback_name", ""); fbName != "" {
			fbEntry := config.ProviderEntry{
				Name:    fbName,
				APIKey:  cfg.Providers.Translate.StringOption("fallback_api_key", ""),
				BaseURL: cfg.Providers.Translate.StringOption("fallback_base_url", ""),
				Model:   cfg.Providers.Translate.StringOption("fallback_model", ""),
			}
			fb, err := reg.CreateTranslate(fbEntry, cfg.Pipeline.SourceLang, cfg.Pipeline.TargetLang)
			if err != nil {
				return nil, fmt.Errorf("create fallback translate provider %q: %w", fbName, err)
			}
			wrapped.AddFallback(fbName, fb)
			slog.Info("translate fallback configured", "name", fbName)
		}
		ps.Translator = wrapped
		slog.Info("provider created", "kind", "translate", "name", name,
			"source_lang", cfg.Pipeline.SourceLang, "target_lang", cfg.Pipeline.TargetLang)
	}

	speaker, err := reg.CreateSpeech(cfg.Providers.Speech)
	if err != nil {
		return nil, fmt.Errorf("create speech provider %q: %w", cfg.Providers.Speech.Name, err)
	}
	ps.Speaker = speaker
	slog.Info("provider created", "kind", "speech", "name", cfg.Providers.Speech.Name)

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        VoxScreen — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Capture", cfg.Providers.Capture.Name, "")
	printProvider("OCR", cfg.Providers.OCR.Name, cfg.Providers.OCR.Model)
	printProvider("Translate", cfg.Providers.Translate.Name, cfg.Providers.Translate.Model)
	printProvider("Speech", cfg.Providers.Speech.Name, cfg.Providers.Speech.Model)
	mode := "translate"
	if !cfg.Pipeline.TranslateEnabled() {
		mode = "read aloud"
	}
	fmt.Printf("║  Mode            : %-19s ║\n", mode)
	if cfg.Pipeline.TranslateEnabled() {
		langs := cfg.Pipeline.SourceLang + " → " + cfg.Pipeline.TargetLang
		fmt.Printf("║  Languages       : %-19s ║\n", langs)
	}
	if cfg.History.PostgresDSN != "" {
		fmt.Printf("║  History         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
