package health

import (
	"context"
	"testing"

	"github.com/voxscreen/voxscreen/internal/history"
)

func TestHistoryChecker(t *testing.T) {
	c := HistoryChecker(history.NewMemStore(1))
	if c.Name != "history" {
		t.Errorf("name = %q", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("check with live store: %v", err)
	}

	if err := HistoryChecker(nil).Check(context.Background()); err == nil {
		t.Error("check with nil store should fail")
	}
}

func TestPipelineChecker(t *testing.T) {
	running := false
	c := PipelineChecker(func() bool { return running })

	if err := c.Check(context.Background()); err == nil {
		t.Error("check should fail while pipeline stopped")
	}
	running = true
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("check while running: %v", err)
	}
}
