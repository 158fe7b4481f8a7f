package models

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

type TaskStatus string

const (
	TaskStatusRunning TaskStatus = "running"
	TaskStatusPaused  TaskStatus = "paused"
)

// Task is one tracked work item. Times are stored as epoch milliseconds so
// the persisted blob stays compatible with records written by earlier
// versions of the tracker.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Status          TaskStatus `json:"status"`
	AccumulatedTime int64      `json:"accumulatedTime"`
	LastStartTime   *int64     `json:"lastStartTime"`
}

func (t *Task) IsRunning() bool {
	return t.Status == TaskStatusRunning
}

// Accumulated returns the banked duration, excluding any open interval.
func (t *Task) Accumulated() time.Duration {
	return time.Duration(t.AccumulatedTime) * time.Millisecond
}

// StartedAt returns the start of the open running interval, if any.
func (t *Task) StartedAt() *time.Time {
	if t.LastStartTime == nil {
		return nil
	}
	ts := time.UnixMilli(*t.LastStartTime)
	return &ts
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.LastStartTime != nil {
		v := *t.LastStartTime
		c.LastStartTime = &v
	}
	return &c
}

// TimerState is the whole persisted state.
type TimerState struct {
	ActiveTaskID *string          `json:"activeTaskId"`
	Tasks        map[string]*Task `json:"tasks"`
}

// NewTimerState returns the state used on first run.
func NewTimerState() *TimerState {
	return &TimerState{
		ActiveTaskID: nil,
		Tasks:        make(map[string]*Task),
	}
}

// Active returns the active task, or nil.
func (s *TimerState) Active() *Task {
	if s.ActiveTaskID == nil {
		return nil
	}
	return s.Tasks[*s.ActiveTaskID]
}

func (s *TimerState) SetActive(id string) {
	s.ActiveTaskID = &id
}

func (s *TimerState) ClearActive() {
	s.ActiveTaskID = nil
}

// Clone returns a deep copy of the state.
func (s *TimerState) Clone() *TimerState {
	c := NewTimerState()
	if s.ActiveTaskID != nil {
		c.SetActive(*s.ActiveTaskID)
	}
	for id, t := range s.Tasks {
		c.Tasks[id] = t.Clone()
	}
	return c
}

// Ordered lists the tasks with the running one first, then by title and id.
func (s *TimerState) Ordered() []*Task {
	tasks := make([]*Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.IsRunning() != b.IsRunning() {
			return a.IsRunning()
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return tasks
}

// Validate reports the first violated state invariant, if any.
func (s *TimerState) Validate(now time.Time) error {
	var running []string
	for id, t := range s.Tasks {
		if t.ID != id {
			return errors.Errorf("task keyed %q has id %q", id, t.ID)
		}
		if t.AccumulatedTime < 0 {
			return errors.Errorf("task %s has negative accumulated time", id)
		}
		switch t.Status {
		case TaskStatusRunning:
			running = append(running, id)
			if t.LastStartTime == nil {
				return errors.Errorf("running task %s has no start time", id)
			}
			if *t.LastStartTime > now.UnixMilli() {
				return errors.Errorf("running task %s started in the future", id)
			}
		case TaskStatusPaused:
			if t.LastStartTime != nil {
				return errors.Errorf("paused task %s has a start time", id)
			}
		default:
			return errors.Errorf("task %s has unknown status %q", id, t.Status)
		}
	}

	if len(running) > 1 {
		return errors.Errorf("%d tasks running at once: %v", len(running), running)
	}

	switch {
	case len(running) == 0 && s.ActiveTaskID != nil:
		return errors.Errorf("active task %s is not running", *s.ActiveTaskID)
	case len(running) == 1 && (s.ActiveTaskID == nil || *s.ActiveTaskID != running[0]):
		return errors.Errorf("running task %s is not the active task", running[0])
	}

	return nil
}
