package components

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleRows() []TaskRow {
	return []TaskRow{
		{ID: "1", Title: "running task", Running: true, Clock: "00:05:00", Hours: "0.08"},
		{ID: "2", Title: "paused task", Clock: "01:30:00", Hours: "1.50"},
	}
}

func TestTaskList(t *testing.T) {
	l := NewTaskList(60)
	l.Title = "Timers"
	l.SetRows(sampleRows())

	view := l.View()

	if !strings.Contains(view, "Timers") {
		t.Errorf("expected view to contain Title")
	}
	if !strings.Contains(view, "▶ running task") {
		t.Errorf("expected view to contain ▶ running task")
	}
	if !strings.Contains(view, "⏸ paused task") {
		t.Errorf("expected view to contain ⏸ paused task")
	}
	if !strings.Contains(view, "01:30:00  1.50h") {
		t.Errorf("expected view to contain both time formats")
	}
}

func TestTaskListOrder(t *testing.T) {
	l := NewTaskList(60)
	l.SetRows(sampleRows())

	view := l.View()
	runningIdx := strings.Index(view, "running task")
	pausedIdx := strings.Index(view, "paused task")

	if runningIdx == -1 || pausedIdx == -1 {
		t.Fatalf("expected all tasks to be present")
	}
	if runningIdx > pausedIdx {
		t.Errorf("expected rows in the given order, got indices: %d, %d", runningIdx, pausedIdx)
	}
}

func TestTaskListEmptyState(t *testing.T) {
	l := NewTaskList(60)
	if !strings.Contains(l.View(), "No tasks tracked yet") {
		t.Errorf("expected placeholder when no tasks")
	}
	if _, ok := l.Selected(); ok {
		t.Errorf("expected no selection on empty list")
	}
}

func TestTaskListCursor(t *testing.T) {
	l := NewTaskList(60)
	l.SetRows(sampleRows())

	l.MoveUp()
	if l.Cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", l.Cursor)
	}

	l.MoveDown()
	l.MoveDown()
	if l.Cursor != 1 {
		t.Errorf("expected cursor to stop at 1, got %d", l.Cursor)
	}

	row, ok := l.Selected()
	if !ok || row.ID != "2" {
		t.Errorf("expected task 2 selected, got %+v", row)
	}

	l.SetRows(sampleRows()[:1])
	if l.Cursor != 0 {
		t.Errorf("expected cursor clamped to 0 after shrink, got %d", l.Cursor)
	}
}

func TestActivityLog(t *testing.T) {
	o := NewActivityLog(80, 5, 3)
	o.SetSize(80, 5)

	at := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	o.Append(at, "started task 42")
	o.AppendError(at, errors.New("task not found"))

	view := o.View()
	if !strings.Contains(view, "09:30:00") {
		t.Errorf("expected view to contain timestamp")
	}
	if !strings.Contains(view, "started task 42") {
		t.Errorf("expected view to contain entry")
	}
	if !strings.Contains(view, "task not found") {
		t.Errorf("expected view to contain error")
	}

	o.Reset()
	if strings.Contains(o.View(), "started task 42") {
		t.Errorf("expected view to be cleared after Reset")
	}
}

func TestActivityLogLimit(t *testing.T) {
	o := NewActivityLog(40, 10, 3)
	o.SetSize(40, 10)

	at := time.Now()
	for _, msg := range []string{"one", "two", "three", "four"} {
		o.Append(at, msg)
	}

	if o.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", o.Len())
	}
	if strings.Contains(o.View(), "one") {
		t.Errorf("expected oldest entry to be dropped")
	}
}

func TestActivityLogScrollbar(t *testing.T) {
	width, height := 20, 3
	o := NewActivityLog(width, height, 0)
	o.SetSize(width, height)

	at := time.Now()
	for i := 0; i < 10; i++ {
		o.Append(at, "line")
	}

	view := o.View()
	if !strings.Contains(view, "┃") {
		t.Errorf("expected view to contain scrollbar handle '┃'")
	}
}
