package resilience

import (
	"context"
	"errors"

	"github.com/voxscreen/voxscreen/pkg/provider/translate"
)

// Compile-time interface check.
var _ translate.Provider = (*TranslateFallback)(nil)

// TranslateFallback wraps a primary translation provider (and optional
// fallbacks) in a [FallbackGroup]. When the primary keeps failing its circuit
// breaker opens and requests flow to the next configured provider until the
// primary recovers.
//
// Cancellations are exempt from failure accounting: the pipeline preempts
// translations constantly during fast dialogue, and a preempted request says
// nothing about provider health. A cancelled request is also never retried
// against a fallback — the text it carried is already stale.
type TranslateFallback struct {
	group *FallbackGroup[translate.Provider]
}

// NewTranslateFallback creates a TranslateFallback with primary as the first
// entry. cfg tunes the per-provider circuit breakers; the IsFailure predicate
// is always overridden to exempt [translate.ErrCancelled] and context errors.
func NewTranslateFallback(primary translate.Provider, primaryName string, cfg FallbackConfig) *TranslateFallback {
	cfg.CircuitBreaker.IsFailure = func(err error) bool {
		return !errors.Is(err, translate.ErrCancelled) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	return &TranslateFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback appends a fallback provider, tried after the primary.
func (f *TranslateFallback) AddFallback(name string, provider translate.Provider) {
	f.group.AddFallback(name, provider)
}

// Translate implements [translate.Provider] with automatic failover.
func (f *TranslateFallback) Translate(ctx context.Context, text string) (*translate.Result, error) {
	return ExecuteWithResult(f.group, func(p translate.Provider) (*translate.Result, error) {
		return p.Translate(ctx, text)
	})
}

// Cancel implements [translate.Provider]. The request may be in flight on any
// entry, so the cancel fans out to all of them.
func (f *TranslateFallback) Cancel() {
	f.group.ForEach(func(_ string, p translate.Provider) {
		p.Cancel()
	})
}
