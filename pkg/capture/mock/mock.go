// Package mock provides a test double for the capture.Source interface.
//
// Use Source to feed a scripted sequence of frames to the pipeline and to
// verify the regions requested by the capture loop.
package mock

import (
	"context"
	"sync"

	"github.com/voxscreen/voxscreen/pkg/capture"
)

// CaptureCall records a single invocation of Capture.
type CaptureCall struct {
	// Ctx is the context passed to Capture.
	Ctx context.Context
	// Region is the region passed to Capture.
	Region capture.Region
}

// Source is a mock implementation of capture.Source. It returns the configured
// frames one at a time; once the sequence is exhausted it returns (nil, nil)
// ("no frame available") unless Err is set.
type Source struct {
	mu sync.Mutex

	// Frames is the sequence of frames returned by successive Capture calls.
	Frames []*capture.Frame

	// Err, if non-nil, is returned by every Capture call after Frames is
	// exhausted. While frames remain, Err is ignored.
	Err error

	// CaptureCalls records every call to Capture in order.
	CaptureCalls []CaptureCall

	next int
}

// Capture records the call and returns the next configured frame.
func (s *Source) Capture(ctx context.Context, region capture.Region) (*capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CaptureCalls = append(s.CaptureCalls, CaptureCall{Ctx: ctx, Region: region})

	if s.next < len(s.Frames) {
		f := s.Frames[s.next]
		s.next++
		return f, nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, nil
}

// Reset clears all recorded calls and rewinds the frame sequence. Thread-safe.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CaptureCalls = nil
	s.next = 0
}

// Compile-time interface assertion.
var _ capture.Source = (*Source)(nil)
