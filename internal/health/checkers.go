package health

import (
	"context"
	"errors"

	"github.com/voxscreen/voxscreen/internal/history"
)

// HistoryChecker probes the phrase archive by issuing a single-entry read.
// A store that cannot serve reads marks the process not ready.
func HistoryChecker(store history.Store) Checker {
	return Checker{
		Name: "history",
		Check: func(ctx context.Context) error {
			if store == nil {
				return errors.New("no history store configured")
			}
			_, err := store.Recent(ctx, 1)
			return err
		},
	}
}

// PipelineChecker reports readiness based on whether the capture pipeline is
// currently running. running must be safe for concurrent use.
func PipelineChecker(running func() bool) Checker {
	return Checker{
		Name: "pipeline",
		Check: func(_ context.Context) error {
			if !running() {
				return errors.New("pipeline not running")
			}
			return nil
		},
	}
}
