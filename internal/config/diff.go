package config

import "reflect"

// ConfigDiff describes what changed between two configs. Capture settings
// and the translate flag are re-read by the pipeline every cycle, so they
// apply live; everything else needs the process rebuilt.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CaptureChanged is true when the region, rate or diff threshold
	// changed. These apply on the next capture cycle.
	CaptureChanged bool

	// TranslateToggled is true when the translate flag flipped.
	TranslateToggled bool

	// RequiresRestart is true when a change cannot be applied live:
	// providers, server address, filter thresholds or history settings.
	RequiresRestart bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CaptureChanged || d.TranslateToggled || d.RequiresRestart
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Capture != new.Capture {
		d.CaptureChanged = true
	}

	if old.Pipeline.TranslateEnabled() != new.Pipeline.TranslateEnabled() {
		d.TranslateToggled = true
	}

	if !reflect.DeepEqual(old.Providers, new.Providers) ||
		old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		old.History != new.History ||
		filtersChanged(old.Pipeline, new.Pipeline) {
		d.RequiresRestart = true
	}

	return d
}

// filtersChanged reports whether any pipeline setting other than the
// translate flag differs.
func filtersChanged(old, new PipelineConfig) bool {
	return old.StabilizerWindow != new.StabilizerWindow ||
		old.StabilizerThreshold != new.StabilizerThreshold ||
		old.DedupThreshold != new.DedupThreshold ||
		old.SourceLang != new.SourceLang ||
		old.TargetLang != new.TargetLang
}

// tlsEqual compares two optional TLS blocks.
func tlsEqual(old, new *TLSConfig) bool {
	if old == nil || new == nil {
		return old == new
	}
	return *old == *new
}
