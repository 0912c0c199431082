// Package pipeline contains the streaming core: a freshest-wins handoff
// queue, a frame change gate and the coordinator that drives capture,
// recognition, translation and speech as one pipeline.
package pipeline

import "context"

// Latest is a single-slot handoff queue that keeps only the newest value.
//
// Put never blocks: when the slot is occupied, the old value is discarded
// and replaced. Get blocks until a value is available or the context is
// done. With one producer and one consumer this gives the pipeline its
// backpressure behavior: a slow consumer observes at most one queued item,
// and that item is always the freshest.
type Latest[T any] struct {
	slot chan T
}

// NewLatest creates an empty Latest queue.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{slot: make(chan T, 1)}
}

// Put stores v, overwriting any value already in the slot. It never blocks.
func (l *Latest[T]) Put(v T) {
	for {
		select {
		case l.slot <- v:
			return
		default:
		}
		// Slot occupied: discard the stale value and retry. The select
		// default covers the race where the consumer drained it first.
		select {
		case <-l.slot:
		default:
		}
	}
}

// Get removes and returns the current value, blocking until one is
// available. It returns the context error when ctx is done first.
func (l *Latest[T]) Get(ctx context.Context) (T, error) {
	select {
	case v := <-l.slot:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryGet removes and returns the current value without blocking. The second
// return is false when the slot is empty.
func (l *Latest[T]) TryGet() (T, bool) {
	select {
	case v := <-l.slot:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
