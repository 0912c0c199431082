// Package capture defines the frame source contract for the Voxscreen pipeline.
//
// A Source produces the most recent snapshot of a rectangular screen region on
// demand. Concrete implementations wrap a platform capture backend (X11, DXGI,
// ScreenCaptureKit, …) and live outside this module; the pipeline only depends
// on the narrow [Source] interface. A file-based [replay] implementation and a
// call-recording [mock] are provided for development and tests.
//
// Frames are owned by exactly one stage at a time: a Source hands ownership of
// the returned frame to the caller, and the caller must not retain it after
// forwarding it downstream.
package capture

import (
	"context"
	"image"
	"time"
)

// Region is the rectangular screen area to capture, in physical pixels.
type Region struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Empty reports whether the region has no capturable area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Frame is a single captured snapshot of the configured region.
//
// The pixel data is immutable by contract: no stage may modify Image after the
// frame has been handed off. This keeps frames shareable by reference without
// copies while the change gate and the recognizer inspect them.
type Frame struct {
	// Image holds the captured pixels.
	Image *image.RGBA

	// CapturedAt is the wall-clock time the snapshot was taken.
	CapturedAt time.Time
}

// Source produces frames of a screen region on demand.
//
// Implementations must be safe to call repeatedly at the configured loop rate
// and must never block longer than a single capture attempt.
type Source interface {
	// Capture grabs the most recent content of region. A (nil, nil) return
	// means "no frame available right now, try again later" — it is not an
	// error and the caller should simply continue with the next iteration.
	Capture(ctx context.Context, region Region) (*Frame, error)
}
