// Package types defines the shared types used across Voxscreen provider
// boundaries.
//
// These types form the lingua franca between the translate and speech
// providers and the pipeline coordinator. They are intentionally minimal —
// each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

// Gender hints at the voice to use when speaking a phrase attributed to a
// named character. Translators that cannot infer a gender report
// GenderUnknown and the synthesizer falls back to its default voice.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "m"
	GenderFemale  Gender = "f"
)

// IsValid reports whether g is a recognised gender hint.
func (g Gender) IsValid() bool {
	switch g {
	case GenderUnknown, GenderMale, GenderFemale:
		return true
	}
	return false
}
