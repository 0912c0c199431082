package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/voxscreen/voxscreen/internal/pipeline"
)

func TestLatestPutGet(t *testing.T) {
	t.Parallel()

	q := pipeline.NewLatest[string]()
	q.Put("a")

	got, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "a" {
		t.Fatalf("Get = %q, want %q", got, "a")
	}
}

func TestLatestOverwritesStaleValue(t *testing.T) {
	t.Parallel()

	q := pipeline.NewLatest[string]()
	q.Put("stale")
	q.Put("fresh")

	got, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "fresh" {
		t.Fatalf("Get = %q, want the freshest value", got)
	}

	// The stale value is gone, not queued behind.
	if v, ok := q.TryGet(); ok {
		t.Fatalf("TryGet after Get = %q, want empty slot", v)
	}
}

func TestLatestPutNeverBlocks(t *testing.T) {
	t.Parallel()

	q := pipeline.NewLatest[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.Put(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Put blocked with no consumer")
	}

	got, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 999 {
		t.Fatalf("Get = %d, want the last value put", got)
	}
}

func TestLatestGetBlocksUntilPut(t *testing.T) {
	t.Parallel()

	q := pipeline.NewLatest[string]()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Put("late")
	}()

	got, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "late" {
		t.Fatalf("Get = %q, want %q", got, "late")
	}
}

func TestLatestGetHonorsContext(t *testing.T) {
	t.Parallel()

	q := pipeline.NewLatest[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Get(ctx); err == nil {
		t.Fatal("Get on empty queue with expired context returned nil error")
	}
}

func TestLatestTryGetEmpty(t *testing.T) {
	t.Parallel()

	q := pipeline.NewLatest[string]()
	if v, ok := q.TryGet(); ok {
		t.Fatalf("TryGet on empty queue = %q, true; want false", v)
	}
}
