package pipeline_test

import (
	"image"
	"testing"
	"time"

	"github.com/voxscreen/voxscreen/internal/pipeline"
	"github.com/voxscreen/voxscreen/pkg/capture"
)

// solidFrame builds a frame filled with a single gray level.
func solidFrame(level uint8) *capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = level
		img.Pix[i+1] = level
		img.Pix[i+2] = level
		img.Pix[i+3] = 0xff
	}
	return &capture.Frame{Image: img, CapturedAt: time.Now()}
}

func TestChangeGateFirstFramePasses(t *testing.T) {
	t.Parallel()

	g := pipeline.NewChangeGate(3.0)
	if !g.Changed(solidFrame(100)) {
		t.Fatal("first frame suppressed, want passed")
	}
}

func TestChangeGateSuppressesIdenticalFrame(t *testing.T) {
	t.Parallel()

	g := pipeline.NewChangeGate(3.0)
	g.Changed(solidFrame(100))
	if g.Changed(solidFrame(100)) {
		t.Fatal("identical frame passed, want suppressed")
	}
}

func TestChangeGateSuppressesNoiseBelowThreshold(t *testing.T) {
	t.Parallel()

	g := pipeline.NewChangeGate(3.0)
	g.Changed(solidFrame(100))
	if g.Changed(solidFrame(102)) {
		t.Fatal("sub-threshold brightness shift passed, want suppressed")
	}
}

func TestChangeGatePassesChangedFrame(t *testing.T) {
	t.Parallel()

	g := pipeline.NewChangeGate(3.0)
	g.Changed(solidFrame(100))
	if !g.Changed(solidFrame(140)) {
		t.Fatal("changed frame suppressed, want passed")
	}
}

func TestChangeGateAccumulatesSlowFade(t *testing.T) {
	t.Parallel()

	// A fade moving less than the threshold per frame: suppressed frames
	// keep the old baseline, so the drift adds up and eventually passes.
	g := pipeline.NewChangeGate(3.0)
	g.Changed(solidFrame(100))
	if g.Changed(solidFrame(102)) {
		t.Fatal("fade step to 102 passed, want suppressed")
	}
	if !g.Changed(solidFrame(104)) {
		t.Fatal("fade reached 104 (drift 4 against baseline 100) but was suppressed")
	}
	// Passing re-anchors the baseline at 104.
	if g.Changed(solidFrame(106)) {
		t.Fatal("fade step to 106 passed, want suppressed against new baseline")
	}
}

func TestChangeGatePassesOnShapeChange(t *testing.T) {
	t.Parallel()

	g := pipeline.NewChangeGate(3.0)
	g.Changed(solidFrame(100))

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 100, 100, 100, 0xff
	}
	if !g.Changed(&capture.Frame{Image: img, CapturedAt: time.Now()}) {
		t.Fatal("frame with a new region size suppressed, want passed")
	}
}

func TestChangeGateReset(t *testing.T) {
	t.Parallel()

	g := pipeline.NewChangeGate(3.0)
	g.Changed(solidFrame(100))
	g.Reset()
	if !g.Changed(solidFrame(100)) {
		t.Fatal("first frame after Reset suppressed, want passed")
	}
}
