// Package replay implements a capture.Source that plays back PNG images from
// a directory in lexical filename order. It exists for development and
// integration testing: record a session's frames to disk once, then drive the
// full pipeline deterministically without a live screen.
package replay

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voxscreen/voxscreen/pkg/capture"
)

// Compile-time interface assertion.
var _ capture.Source = (*Source)(nil)

// Source replays PNG frames from a directory. Once all frames have been
// served, Capture returns (nil, nil) unless looping is enabled.
//
// Safe for concurrent use, although the pipeline only ever calls Capture from
// a single goroutine.
type Source struct {
	mu    sync.Mutex
	files []string
	next  int
	loop  bool
}

// Option configures a replay Source.
type Option func(*Source)

// WithLoop makes the source wrap around to the first frame after the last one
// instead of reporting "no frame available".
func WithLoop() Option {
	return func(s *Source) { s.loop = true }
}

// New creates a Source that serves every .png file in dir, sorted by filename.
// Returns an error if the directory cannot be read or contains no PNG files.
func New(dir string, opts ...Option) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("replay: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("replay: no PNG files in %q", dir)
	}

	s := &Source{files: files}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Capture decodes and returns the next frame in sequence. The region argument
// is ignored — replayed frames are served at their recorded size.
func (s *Source) Capture(ctx context.Context, _ capture.Region) (*capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.next >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return nil, nil
		}
		s.next = 0
	}
	path := s.files[s.next]
	s.next++
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open %q: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("replay: decode %q: %w", path, err)
	}

	return &capture.Frame{
		Image:      toRGBA(img),
		CapturedAt: time.Now(),
	}, nil
}

// toRGBA returns img as *image.RGBA, converting only when necessary.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
