// Package mock provides a test double for the ocr.Provider interface.
//
// Use Provider to script recognition results per call and to verify which
// frames reached the recognizer.
package mock

import (
	"context"
	"sync"

	"github.com/voxscreen/voxscreen/pkg/capture"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr"
)

// RecognizeCall records a single invocation of Recognize.
type RecognizeCall struct {
	// Ctx is the context passed to Recognize.
	Ctx context.Context
	// Frame is the frame passed to Recognize.
	Frame *capture.Frame
}

// Provider is a mock implementation of ocr.Provider. Each Recognize call
// returns the next entry from Results; once exhausted, the last entry repeats
// (or the empty string if Results is empty).
type Provider struct {
	mu sync.Mutex

	// Results is the sequence of texts returned by successive Recognize calls.
	Results []string

	// Err, if non-nil, is returned by every Recognize call.
	Err error

	// RecognizeCalls records every call to Recognize in order.
	RecognizeCalls []RecognizeCall

	next int
}

// Recognize records the call and returns the next scripted result.
func (p *Provider) Recognize(ctx context.Context, frame *capture.Frame) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecognizeCalls = append(p.RecognizeCalls, RecognizeCall{Ctx: ctx, Frame: frame})

	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Results) == 0 {
		return "", nil
	}
	if p.next < len(p.Results) {
		r := p.Results[p.next]
		p.next++
		return r, nil
	}
	return p.Results[len(p.Results)-1], nil
}

// Reset clears all recorded calls and rewinds the result sequence. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecognizeCalls = nil
	p.next = 0
}

// Compile-time interface assertion.
var _ ocr.Provider = (*Provider)(nil)
