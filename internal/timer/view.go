package timer

import (
	"time"

	"github.com/ldi/stint/pkg/models"
)

// TaskView is a task with its elapsed time computed at a given instant.
type TaskView struct {
	*models.Task
	ElapsedMs int64 `json:"elapsedMs"`
}

type StateView struct {
	ActiveTaskID *string    `json:"activeTaskId"`
	Badge        string     `json:"badge"`
	Tasks        []TaskView `json:"tasks"`
}

func NewTaskView(t *models.Task, now time.Time) TaskView {
	return TaskView{Task: t, ElapsedMs: Elapsed(t, now).Milliseconds()}
}

// NewStateView projects state for display. Tasks are listed running first.
func NewStateView(state *models.TimerState, now time.Time) StateView {
	view := StateView{
		ActiveTaskID: state.ActiveTaskID,
		Badge:        BadgeText(state),
		Tasks:        []TaskView{},
	}
	for _, t := range state.Ordered() {
		view.Tasks = append(view.Tasks, NewTaskView(t, now))
	}
	return view
}
