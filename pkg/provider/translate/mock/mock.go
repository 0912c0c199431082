// Package mock provides a test double for the translate.Provider interface.
//
// Use Provider to script translation results, simulate slow backends that
// only return once cancelled, and verify the order of Translate and Cancel
// calls from the coordinator.
package mock

import (
	"context"
	"sync"

	"github.com/voxscreen/voxscreen/pkg/provider/translate"
)

// TranslateCall records a single invocation of Translate.
type TranslateCall struct {
	// Ctx is the context passed to Translate.
	Ctx context.Context
	// Text is the source text passed to Translate.
	Text string
}

// Provider is a mock implementation of translate.Provider.
type Provider struct {
	mu sync.Mutex

	// Results is the sequence of results returned by successive Translate
	// calls. Once exhausted, the last entry repeats; an empty slice yields
	// (nil, nil) ("no usable translation").
	Results []*translate.Result

	// Err, if non-nil, is returned by every Translate call.
	Err error

	// BlockUntilCancel makes Translate block until Cancel is called (or ctx
	// is done) and then return translate.ErrCancelled. Used to exercise the
	// preemption path.
	BlockUntilCancel bool

	// Started, if non-nil, receives one value at the start of every
	// Translate call. Must be buffered deep enough for the test's call count.
	Started chan struct{}

	// TranslateCalls records every call to Translate in order.
	TranslateCalls []TranslateCall

	// CancelCalls counts calls to Cancel.
	CancelCalls int

	next     int
	cancelCh chan struct{}
}

// Translate records the call and returns the next scripted result.
func (p *Provider) Translate(ctx context.Context, text string) (*translate.Result, error) {
	p.mu.Lock()
	p.TranslateCalls = append(p.TranslateCalls, TranslateCall{Ctx: ctx, Text: text})
	var cancelCh chan struct{}
	if p.BlockUntilCancel {
		if p.cancelCh == nil {
			p.cancelCh = make(chan struct{})
		}
		cancelCh = p.cancelCh
	}
	started := p.Started
	p.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}

	if cancelCh != nil {
		select {
		case <-cancelCh:
			return nil, translate.ErrCancelled
		case <-ctx.Done():
			return nil, translate.ErrCancelled
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Results) == 0 {
		return nil, nil
	}
	if p.next < len(p.Results) {
		r := p.Results[p.next]
		p.next++
		return r, nil
	}
	return p.Results[len(p.Results)-1], nil
}

// Cancel records the call and releases any Translate blocked by
// BlockUntilCancel.
func (p *Provider) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CancelCalls++
	if p.cancelCh != nil {
		close(p.cancelCh)
		p.cancelCh = nil
	}
}

// Reset clears all recorded calls and rewinds the result sequence. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranslateCalls = nil
	p.CancelCalls = 0
	p.next = 0
	p.cancelCh = nil
}

// Compile-time interface assertion.
var _ translate.Provider = (*Provider)(nil)
