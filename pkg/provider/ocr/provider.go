// Package ocr defines the Provider interface for optical character
// recognition backends.
//
// An OCR provider maps a captured frame to the raw text visible in it. The
// pipeline treats recognition as opaque and lossy: an empty string means "no
// text found" and is a perfectly normal per-frame outcome, not an error.
// Backend failures on a single frame are likewise folded into the empty
// result by the caller — one unreadable frame must never stall the stream.
//
// Implementations must be safe for concurrent use.
package ocr

import (
	"context"

	"github.com/voxscreen/voxscreen/pkg/capture"
)

// Provider is the abstraction over any OCR backend.
type Provider interface {
	// Recognize extracts the text visible in frame. An empty string with a
	// nil error means no text was found. Implementations should respect ctx
	// cancellation and return promptly when it fires.
	//
	// The frame is read-only; implementations must not modify or retain it.
	Recognize(ctx context.Context, frame *capture.Frame) (string, error)
}
