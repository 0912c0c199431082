package config_test

import (
	"strings"
	"testing"

	"github.com/voxscreen/voxscreen/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
capture:
  region:
    left: 100
    top: 600
    width: 1280
    height: 200
pipeline:
  source_lang: en
  target_lang: ru
providers:
  ocr:
    name: tesseract
  translate:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  speech:
    name: coqui
    base_url: http://localhost:5002
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Capture.Region.Width != 1280 {
		t.Errorf("region width = %d, want 1280", cfg.Capture.Region.Width)
	}
	if cfg.Providers.Translate.Model != "gpt-4o-mini" {
		t.Errorf("translate model = %q", cfg.Providers.Translate.Model)
	}
	if !cfg.Pipeline.TranslateEnabled() {
		t.Error("translate should default to enabled")
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Capture.FPS != 30 {
		t.Errorf("fps = %v, want default 30", cfg.Capture.FPS)
	}
	if cfg.Capture.DiffThreshold != 3.0 {
		t.Errorf("diff_threshold = %v, want default 3.0", cfg.Capture.DiffThreshold)
	}
	if cfg.Pipeline.StabilizerWindow != 3 {
		t.Errorf("stabilizer_window = %d, want default 3", cfg.Pipeline.StabilizerWindow)
	}
	if cfg.Pipeline.StabilizerThreshold != 0.85 {
		t.Errorf("stabilizer_threshold = %v, want default 0.85", cfg.Pipeline.StabilizerThreshold)
	}
	if cfg.Pipeline.DedupThreshold != 0.95 {
		t.Errorf("dedup_threshold = %v, want default 0.95", cfg.Pipeline.DedupThreshold)
	}
	if cfg.History.MemoryLimit != 500 {
		t.Errorf("memory_limit = %d, want default 500", cfg.History.MemoryLimit)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	yaml := `
bogus_section:
  foo: bar
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown config field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := strings.Replace(validYAML, "log_level: info", "log_level: loud", 1)
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_MissingRequiredProviders(t *testing.T) {
	t.Parallel()
	yaml := `
pipeline:
  translate: false
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing ocr/speech providers, got nil")
	}
	for _, want := range []string{"providers.ocr", "providers.speech"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_TranslateNeedsProviderAndLanguages(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  ocr:
    name: tesseract
  speech:
    name: coqui
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for enabled translation without provider, got nil")
	}
	if !strings.Contains(err.Error(), "providers.translate") {
		t.Errorf("error should mention providers.translate, got: %v", err)
	}
	if !strings.Contains(err.Error(), "source_lang") {
		t.Errorf("error should mention source_lang, got: %v", err)
	}
}

func TestValidate_TranslateDisabledNeedsNoProvider(t *testing.T) {
	t.Parallel()
	yaml := `
pipeline:
  translate: false
providers:
  ocr:
    name: tesseract
  speech:
    name: coqui
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Pipeline.TranslateEnabled() {
		t.Error("translate should be disabled")
	}
}

func TestValidate_RangeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		old     string
		new     string
		wantSub string
	}{
		{"fps too high", "capture:", "capture:\n  fps: 500", "capture.fps"},
		{"stabilizer threshold", "source_lang: en", "stabilizer_threshold: 1.5\n  source_lang: en", "stabilizer_threshold"},
		{"dedup threshold", "source_lang: en", "dedup_threshold: -0.5\n  source_lang: en", "dedup_threshold"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			yaml := strings.Replace(validYAML, tt.old, tt.new, 1)
			_, err := config.LoadFromReader(strings.NewReader(yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error should mention %s, got: %v", tt.wantSub, err)
			}
		})
	}
}

func TestProviderEntry_StringOption(t *testing.T) {
	t.Parallel()
	e := config.ProviderEntry{Options: map[string]any{"language": "eng", "psm": 6}}
	if got := e.StringOption("language", "x"); got != "eng" {
		t.Errorf("StringOption(language) = %q", got)
	}
	if got := e.StringOption("psm", "6"); got != "6" {
		t.Errorf("StringOption on non-string = %q, want default", got)
	}
	if got := e.StringOption("missing", "fallback"); got != "fallback" {
		t.Errorf("StringOption(missing) = %q", got)
	}
}
