package config_test

import (
	"testing"

	"github.com/voxscreen/voxscreen/internal/config"
)

// baseConfig returns a minimal valid config for diffing.
func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.ListenAddr = ":8080"
	cfg.Server.LogLevel = config.LogInfo
	cfg.Pipeline.SourceLang = "en"
	cfg.Pipeline.TargetLang = "ru"
	cfg.Providers.OCR.Name = "tesseract"
	cfg.Providers.Translate.Name = "openai"
	cfg.Providers.Speech.Name = "coqui"
	config.ApplyDefaults(cfg)
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("Diff of identical configs reports changes: %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged = false, want true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.RequiresRestart {
		t.Error("log level change should not require restart")
	}
}

func TestDiff_CaptureAppliesLive(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Capture.Region.Width = 1920
	new.Capture.FPS = 15

	d := config.Diff(old, new)
	if !d.CaptureChanged {
		t.Error("CaptureChanged = false, want true")
	}
	if d.RequiresRestart {
		t.Error("capture change should not require restart")
	}
}

func TestDiff_TranslateToggle(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	off := false
	new.Pipeline.Translate = &off

	d := config.Diff(old, new)
	if !d.TranslateToggled {
		t.Error("TranslateToggled = false, want true")
	}
	if d.RequiresRestart {
		t.Error("translate toggle should not require restart")
	}
}

func TestDiff_RequiresRestart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"provider change", func(c *config.Config) { c.Providers.Translate.Name = "ollama" }},
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9090" }},
		{"stabilizer window", func(c *config.Config) { c.Pipeline.StabilizerWindow = 5 }},
		{"target language", func(c *config.Config) { c.Pipeline.TargetLang = "de" }},
		{"history dsn", func(c *config.Config) { c.History.PostgresDSN = "postgres://localhost/vs" }},
		{"tls added", func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "a", KeyFile: "b"} }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old, new := baseConfig(), baseConfig()
			tt.mutate(new)
			d := config.Diff(old, new)
			if !d.RequiresRestart {
				t.Errorf("RequiresRestart = false for %s, want true", tt.name)
			}
		})
	}
}
