package pipeline

import (
	"image"
	"math"
	"sync"

	"github.com/voxscreen/voxscreen/pkg/capture"
)

// DefaultDiffThreshold is the mean per-pixel luminance difference (on a
// 0..255 scale) above which two frames count as different. Values below it
// are compression noise and cursor blinks, not new subtitle text.
const DefaultDiffThreshold = 3.0

// probeSize is the side length of the sampling grid used for comparison.
// Recognition cares about text-sized changes; a coarse grid sees those
// while staying cheap enough to run at full capture rate.
const probeSize = 64

// ChangeGate decides whether a captured frame differs enough from the
// previous one to be worth recognizing. It downsamples both frames to a
// small grayscale probe and compares mean absolute luminance difference
// against a threshold.
//
// The first frame always passes. ChangeGate is safe for concurrent use,
// though the pipeline drives it from a single goroutine.
type ChangeGate struct {
	mu        sync.Mutex
	threshold float64
	prev      []float64
	prevW     int
	prevH     int
}

// NewChangeGate creates a ChangeGate with the given luminance threshold.
// Non-positive thresholds fall back to the default.
func NewChangeGate(threshold float64) *ChangeGate {
	if threshold <= 0 {
		threshold = DefaultDiffThreshold
	}
	return &ChangeGate{threshold: threshold}
}

// Changed reports whether frame differs enough from the last frame that
// passed. Suppressed frames do not replace the baseline: a fade that moves
// less than the threshold per frame accumulates against the frozen baseline
// and passes once the total drift is large enough.
func (g *ChangeGate) Changed(frame *capture.Frame) bool {
	probe, w, h := downsampleGray(frame.Image)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.prev == nil || g.prevW != w || g.prevH != h {
		g.prev = probe
		g.prevW = w
		g.prevH = h
		return true
	}

	var sum float64
	for i := range probe {
		sum += math.Abs(probe[i] - g.prev[i])
	}
	if sum/float64(len(probe)) < g.threshold {
		return false
	}
	g.prev = probe
	return true
}

// Reset drops the baseline so the next frame always passes.
func (g *ChangeGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prev = nil
}

// downsampleGray samples img on a coarse grid and returns per-point
// luminance values on a 0..255 scale, plus the grid dimensions.
func downsampleGray(img *image.RGBA) ([]float64, int, int) {
	b := img.Bounds()
	w := min(probeSize, b.Dx())
	h := min(probeSize, b.Dy())
	if w <= 0 || h <= 0 {
		return nil, 0, 0
	}

	out := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		srcY := b.Min.Y + y*b.Dy()/h
		for x := 0; x < w; x++ {
			srcX := b.Min.X + x*b.Dx()/w
			i := img.PixOffset(srcX, srcY)
			r := float64(img.Pix[i])
			gr := float64(img.Pix[i+1])
			bl := float64(img.Pix[i+2])
			// ITU-R BT.601 luma weights.
			out = append(out, 0.299*r+0.587*gr+0.114*bl)
		}
	}
	return out, w, h
}
