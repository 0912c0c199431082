package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxscreen/voxscreen/internal/resilience"
	"github.com/voxscreen/voxscreen/pkg/provider/translate"
	translatemock "github.com/voxscreen/voxscreen/pkg/provider/translate/mock"
)

func breakerConfig(maxFailures int) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  maxFailures,
			ResetTimeout: time.Hour,
		},
	}
}

func TestTranslateFallbackUsesPrimary(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{
		Results: []*translate.Result{{Text: "привет"}},
	}
	fallback := &translatemock.Provider{
		Results: []*translate.Result{{Text: "never"}},
	}

	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(3))
	tf.AddFallback("secondary", fallback)

	res, err := tf.Translate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if res.Text != "привет" {
		t.Errorf("text = %q", res.Text)
	}
	if len(fallback.TranslateCalls) != 0 {
		t.Errorf("fallback was called %d times while primary is healthy", len(fallback.TranslateCalls))
	}
}

func TestTranslateFallbackFailsOver(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{Err: errors.New("upstream down")}
	fallback := &translatemock.Provider{
		Results: []*translate.Result{{Text: "hallo"}},
	}

	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(3))
	tf.AddFallback("secondary", fallback)

	res, err := tf.Translate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if res.Text != "hallo" {
		t.Errorf("text = %q, want fallback result", res.Text)
	}
	if len(primary.TranslateCalls) != 1 {
		t.Errorf("primary calls = %d, want 1", len(primary.TranslateCalls))
	}
}

func TestTranslateFallbackAllFail(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{Err: errors.New("down")}
	fallback := &translatemock.Provider{Err: errors.New("also down")}

	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(3))
	tf.AddFallback("secondary", fallback)

	if _, err := tf.Translate(context.Background(), "hello"); !errors.Is(err, resilience.ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestTranslateFallbackCancelDoesNotFailOver(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{Err: translate.ErrCancelled}
	fallback := &translatemock.Provider{
		Results: []*translate.Result{{Text: "stale"}},
	}

	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(3))
	tf.AddFallback("secondary", fallback)

	_, err := tf.Translate(context.Background(), "hello")
	if !errors.Is(err, translate.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if len(fallback.TranslateCalls) != 0 {
		t.Error("cancelled request was retried against the fallback")
	}
}

func TestTranslateFallbackCancelDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{Err: translate.ErrCancelled}
	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(2))

	// Far more cancellations than the failure budget.
	for i := 0; i < 10; i++ {
		_, _ = tf.Translate(context.Background(), "hello")
	}

	// A real result must still reach the primary.
	primary.Err = nil
	primary.Results = []*translate.Result{{Text: "ok"}}
	res, err := tf.Translate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("translate after cancellations: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestTranslateFallbackBreakerOpensOnRealFailures(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{Err: errors.New("boom")}
	fallback := &translatemock.Provider{
		Results: []*translate.Result{{Text: "ersatz"}},
	}

	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(2))
	tf.AddFallback("secondary", fallback)

	for i := 0; i < 3; i++ {
		if _, err := tf.Translate(context.Background(), "hello"); err != nil {
			t.Fatalf("translate %d: %v", i, err)
		}
	}

	// After MaxFailures the primary's breaker is open and it stops seeing calls.
	if got := len(primary.TranslateCalls); got != 2 {
		t.Errorf("primary calls = %d, want 2 (breaker open afterwards)", got)
	}
	if got := len(fallback.TranslateCalls); got != 3 {
		t.Errorf("fallback calls = %d, want 3", got)
	}
}

func TestTranslateFallbackCancelFansOut(t *testing.T) {
	t.Parallel()

	primary := &translatemock.Provider{}
	fallback := &translatemock.Provider{}

	tf := resilience.NewTranslateFallback(primary, "primary", breakerConfig(3))
	tf.AddFallback("secondary", fallback)
	tf.Cancel()

	if primary.CancelCalls != 1 || fallback.CancelCalls != 1 {
		t.Errorf("cancel calls = %d/%d, want 1/1", primary.CancelCalls, fallback.CancelCalls)
	}
}
