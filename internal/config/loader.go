package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"capture":   {"replay"},
	"ocr":       {"tesseract"},
	"translate": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"speech":    {"coqui"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued tunables with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Capture.FPS == 0 {
		cfg.Capture.FPS = 30
	}
	if cfg.Capture.DiffThreshold == 0 {
		cfg.Capture.DiffThreshold = 3.0
	}
	if cfg.Pipeline.StabilizerWindow == 0 {
		cfg.Pipeline.StabilizerWindow = 3
	}
	if cfg.Pipeline.StabilizerThreshold == 0 {
		cfg.Pipeline.StabilizerThreshold = 0.85
	}
	if cfg.Pipeline.DedupThreshold == 0 {
		cfg.Pipeline.DedupThreshold = 0.95
	}
	if cfg.History.MemoryLimit == 0 {
		cfg.History.MemoryLimit = 500
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if cfg.Capture.FPS < 0 || cfg.Capture.FPS > 240 {
		errs = append(errs, fmt.Errorf("capture.fps %.1f is out of range (0, 240]", cfg.Capture.FPS))
	}
	if cfg.Capture.DiffThreshold < 0 || cfg.Capture.DiffThreshold > 255 {
		errs = append(errs, fmt.Errorf("capture.diff_threshold %.1f is out of range [0, 255]", cfg.Capture.DiffThreshold))
	}
	if cfg.Capture.Region.Width < 0 || cfg.Capture.Region.Height < 0 {
		errs = append(errs, fmt.Errorf("capture.region has negative dimensions %dx%d", cfg.Capture.Region.Width, cfg.Capture.Region.Height))
	}

	// Pipeline
	if cfg.Pipeline.StabilizerWindow < 0 {
		errs = append(errs, fmt.Errorf("pipeline.stabilizer_window %d must not be negative", cfg.Pipeline.StabilizerWindow))
	}
	if t := cfg.Pipeline.StabilizerThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("pipeline.stabilizer_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Pipeline.DedupThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("pipeline.dedup_threshold %.2f is out of range [0, 1]", t))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("capture", cfg.Providers.Capture.Name)
	validateProviderName("ocr", cfg.Providers.OCR.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)
	validateProviderName("speech", cfg.Providers.Speech.Name)

	// Translation availability
	if cfg.Pipeline.TranslateEnabled() {
		if cfg.Providers.Translate.Name == "" {
			errs = append(errs, errors.New("pipeline.translate is enabled but providers.translate is not configured"))
		}
		if cfg.Pipeline.SourceLang == "" || cfg.Pipeline.TargetLang == "" {
			errs = append(errs, errors.New("pipeline.source_lang and pipeline.target_lang are required when translation is enabled"))
		}
	} else if cfg.Providers.Translate.Name != "" {
		slog.Warn("providers.translate is configured but pipeline.translate is disabled; phrases will be read aloud untranslated")
	}

	// Required stages
	if cfg.Providers.OCR.Name == "" {
		errs = append(errs, errors.New("providers.ocr is required"))
	}
	if cfg.Providers.Speech.Name == "" {
		errs = append(errs, errors.New("providers.speech is required"))
	}

	// History availability
	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; phrase history will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
