package timer

import (
	"testing"
	"time"

	"github.com/ldi/stint/pkg/models"
)

func TestNewStateView(t *testing.T) {
	start := int64(1000)
	state := models.NewTimerState()
	state.Tasks["a"] = &models.Task{ID: "a", Title: "alpha", Status: models.TaskStatusPaused, AccumulatedTime: 500}
	state.Tasks["b"] = &models.Task{ID: "b", Title: "beta", Status: models.TaskStatusRunning, LastStartTime: &start}
	state.SetActive("b")

	view := NewStateView(state, time.UnixMilli(4000))

	if view.Badge != "ON" {
		t.Errorf("expected badge ON, got %q", view.Badge)
	}
	if len(view.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(view.Tasks))
	}
	if view.Tasks[0].ID != "b" || view.Tasks[0].ElapsedMs != 3000 {
		t.Errorf("expected running task first with 3000ms, got %s %d", view.Tasks[0].ID, view.Tasks[0].ElapsedMs)
	}
	if view.Tasks[1].ElapsedMs != 500 {
		t.Errorf("expected paused task at 500ms, got %d", view.Tasks[1].ElapsedMs)
	}

	empty := NewStateView(models.NewTimerState(), time.Now())
	if empty.Badge != "" || empty.Tasks == nil {
		t.Errorf("unexpected empty view %+v", empty)
	}
}
