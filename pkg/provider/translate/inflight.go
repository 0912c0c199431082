package translate

import (
	"context"
	"sync"
)

// Inflight tracks the cancel function of the newest Translate call so that
// [Provider.Cancel] can reach it. Dispatches can overlap briefly — an old
// call may still be winding down while a newer one registers — so releasing
// a call clears the registration only when it is still the active one. The
// zero value is ready to use.
type Inflight struct {
	mu     sync.Mutex
	active *inflightCall
}

type inflightCall struct {
	cancel context.CancelFunc
}

// Register records cancel as the active call and returns a release function
// the caller must defer. Release is idempotent and never disturbs a newer
// registration.
func (f *Inflight) Register(cancel context.CancelFunc) (release func()) {
	call := &inflightCall{cancel: cancel}

	f.mu.Lock()
	f.active = call
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		if f.active == call {
			f.active = nil
		}
		f.mu.Unlock()
	}
}

// Cancel fires the active call's cancel function, if any.
func (f *Inflight) Cancel() {
	f.mu.Lock()
	call := f.active
	f.mu.Unlock()
	if call != nil {
		call.cancel()
	}
}
